package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace-ledger/internal/config"
	"marketplace-ledger/internal/server"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer testcontainers.Container
	serverInstance    *server.Server
	serverPort        string
	baseURL           string
	client            *http.Client
	dbConnStr         string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	containerReq := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "marketplace_ledger",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}

	suite.dbConnStr = fmt.Sprintf("host=%s port=%s user=postgres password=password dbname=marketplace_ledger sslmode=disable",
		host, port.Port())

	if err := suite.runMigrations(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %s", err)
	}

	if err := suite.startApplicationServer(); err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
}

func (suite *IntegrationTestSuite) runMigrations() error {
	db, err := sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationFiles, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	sort.Slice(migrationFiles, func(i, j int) bool {
		return migrationFiles[i].Name() < migrationFiles[j].Name()
	})

	for _, file := range migrationFiles {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationPath := filepath.Join("migrations", file.Name())
			migrationSQL, err := migrationsFS.ReadFile(migrationPath)
			if err != nil {
				return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
			}

			if _, err := db.Exec(string(migrationSQL)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
			}
		}
	}

	return nil
}

func (suite *IntegrationTestSuite) startApplicationServer() error {
	cfg := &config.Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "postgres",
		DBPassword: "password",
		DBName:     "marketplace_ledger",
		ServerPort: "0", // Let OS choose a free port
	}

	ctx := context.Background()
	mappedPort, err := suite.postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		return err
	}
	cfg.DBPort = mappedPort.Port()

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	suite.serverInstance = serverInstance
	suite.serverPort = port
	suite.baseURL = "http://localhost:" + port

	return suite.waitForServerReady()
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}

	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

func (suite *IntegrationTestSuite) postJSON(path string, reqBody map[string]interface{}) (*http.Response, string, error) {
	body, _ := json.Marshal(reqBody)

	resp, err := suite.client.Post(suite.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return resp, "", err
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	newResp := &http.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	return newResp, string(respBody), nil
}

func (suite *IntegrationTestSuite) getJSON(path string) (*http.Response, string, error) {
	resp, err := suite.client.Get(suite.baseURL + path)
	if err != nil {
		return resp, "", err
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	newResp := &http.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	return newResp, string(respBody), nil
}

func (suite *IntegrationTestSuite) createAccount(accountID int64, name, initialBalance string) (*http.Response, string, error) {
	return suite.postJSON("/accounts", map[string]interface{}{
		"account_id":      accountID,
		"name":            name,
		"initial_balance": initialBalance,
	})
}

func (suite *IntegrationTestSuite) createProduct(productID int64, name, price string, stock int64) (*http.Response, string, error) {
	return suite.postJSON("/products", map[string]interface{}{
		"product_id": productID,
		"name":       name,
		"price":      price,
		"stock":      stock,
	})
}

func (suite *IntegrationTestSuite) placeOrder(buyerID, productID, quantity int64) (*http.Response, string, error) {
	return suite.postJSON("/orders", map[string]interface{}{
		"buyer_account_id": buyerID,
		"product_id":       productID,
		"quantity":         quantity,
	})
}

func (suite *IntegrationTestSuite) transfer(fromID, toID int64, amount string) (*http.Response, string, error) {
	return suite.postJSON("/transfers", map[string]interface{}{
		"from_account_id": fromID,
		"to_account_id":   toID,
		"amount":          amount,
	})
}

func (suite *IntegrationTestSuite) parseResponse(body string) (map[string]interface{}, error) {
	var response map[string]interface{}
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		suite.T().Logf("Failed to parse response: %s", body)
		return nil, err
	}
	return response, nil
}

func (suite *IntegrationTestSuite) assertDecimalEqual(expected, actual string, msgAndArgs ...interface{}) {
	expectedDec, err := decimal.NewFromString(expected)
	if err != nil {
		suite.T().Fatalf("Invalid expected decimal: %s", expected)
	}

	actualDec, err := decimal.NewFromString(actual)
	if err != nil {
		suite.T().Fatalf("Invalid actual decimal: %s", actual)
	}

	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"Decimal values not equal: expected %s, got %s", expected, actual)
}

func (suite *IntegrationTestSuite) accountBalance(accountID int64) string {
	resp, body, err := suite.getJSON(fmt.Sprintf("/accounts/%d", accountID))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data := response["data"].(map[string]interface{})
	return data["balance"].(string)
}

func (suite *IntegrationTestSuite) productStock(productID int64) float64 {
	resp, body, err := suite.getJSON(fmt.Sprintf("/products/%d", productID))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data := response["data"].(map[string]interface{})
	return data["stock"].(float64)
}

func (suite *IntegrationTestSuite) errorCode(body string) string {
	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	errorData, hasError := response["error"]
	if !assert.True(suite.T(), hasError, "Response should have 'error' field: %s", body) {
		return ""
	}
	return errorData.(map[string]interface{})["code"].(string)
}

// ------------------------------------------------------------------
// Steps below are helpers (non-test methods). They are executed in
// the order invoked by TestFlow for deterministic sequencing.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var healthResp map[string]interface{}
	err = json.Unmarshal(body, &healthResp)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "healthy", healthResp["status"])
}

func (suite *IntegrationTestSuite) stepCreateAccountsAndProducts() {
	resp, body, err := suite.createAccount(123, "alice", "100.00")
	assert.NoError(suite.T(), err)
	suite.T().Logf("Create Account Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	resp, body, err = suite.createAccount(456, "bob", "0.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	resp, body, err = suite.createProduct(10, "widget", "10.00", 5)
	assert.NoError(suite.T(), err)
	suite.T().Logf("Create Product Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	resp, body, err = suite.createProduct(11, "luxury", "100.00", 3)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	suite.assertDecimalEqual("100.00", suite.accountBalance(123))
	assert.Equal(suite.T(), float64(5), suite.productStock(10))
}

func (suite *IntegrationTestSuite) stepSuccessfulOrder() {
	resp, body, err := suite.placeOrder(123, 10, 3)
	assert.NoError(suite.T(), err)
	suite.T().Logf("Place Order Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data, hasData := response["data"]
	assert.True(suite.T(), hasData, "Response should have 'data' field")

	if hasData {
		orderData := data.(map[string]interface{})
		assert.NotEmpty(suite.T(), orderData["order_id"])
		assert.Equal(suite.T(), "widget", orderData["product_name"])
		suite.assertDecimalEqual("30.00", orderData["total_amount"].(string))
		assert.Equal(suite.T(), float64(2), orderData["remaining_stock"])
		suite.assertDecimalEqual("70.00", orderData["balance_after"].(string))
	}

	suite.assertDecimalEqual("70.00", suite.accountBalance(123))
	assert.Equal(suite.T(), float64(2), suite.productStock(10))
}

func (suite *IntegrationTestSuite) stepOrderInsufficientStock() {
	resp, body, err := suite.placeOrder(123, 10, 10)
	assert.NoError(suite.T(), err)
	suite.T().Logf("Insufficient Stock Response: %s", body)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(suite.T(), "insufficient_stock", suite.errorCode(body))

	// State unchanged
	suite.assertDecimalEqual("70.00", suite.accountBalance(123))
	assert.Equal(suite.T(), float64(2), suite.productStock(10))
}

func (suite *IntegrationTestSuite) stepOrderInsufficientBalance() {
	resp, body, err := suite.placeOrder(123, 11, 1)
	assert.NoError(suite.T(), err)
	suite.T().Logf("Insufficient Balance Response: %s", body)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(suite.T(), "insufficient_balance", suite.errorCode(body))

	suite.assertDecimalEqual("70.00", suite.accountBalance(123))
	assert.Equal(suite.T(), float64(3), suite.productStock(11))
}

func (suite *IntegrationTestSuite) stepOrderUnknownProduct() {
	resp, body, err := suite.placeOrder(123, 999, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Equal(suite.T(), "product_not_found", suite.errorCode(body))
}

func (suite *IntegrationTestSuite) stepSuccessfulTransfer() {
	resp, body, err := suite.transfer(123, 456, "40.00")
	assert.NoError(suite.T(), err)
	suite.T().Logf("Transfer Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data, hasData := response["data"]
	assert.True(suite.T(), hasData, "Response should have 'data' field")

	if hasData {
		transferData := data.(map[string]interface{})
		assert.NotEmpty(suite.T(), transferData["transfer_id"])
		assert.Equal(suite.T(), "alice", transferData["from_account_name"])
		assert.Equal(suite.T(), "bob", transferData["to_account_name"])
	}

	suite.assertDecimalEqual("30.00", suite.accountBalance(123))
	suite.assertDecimalEqual("40.00", suite.accountBalance(456))
}

func (suite *IntegrationTestSuite) stepTransferInsufficientBalance() {
	resp, body, err := suite.transfer(123, 456, "10000.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(suite.T(), "insufficient_balance", suite.errorCode(body))

	suite.assertDecimalEqual("30.00", suite.accountBalance(123))
	suite.assertDecimalEqual("40.00", suite.accountBalance(456))
}

func (suite *IntegrationTestSuite) stepSameAccountTransfer() {
	resp, body, err := suite.transfer(123, 123, "10.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "same_account_transfer", suite.errorCode(body))
}

func (suite *IntegrationTestSuite) stepInvalidAmount() {
	resp, body, err := suite.transfer(123, 456, "-100.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "invalid_amount", suite.errorCode(body))

	resp, body, err = suite.transfer(123, 456, "0.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "invalid_amount", suite.errorCode(body))
}

func (suite *IntegrationTestSuite) stepAccountNotFound() {
	resp, body, err := suite.getJSON("/accounts/999")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Equal(suite.T(), "account_not_found", suite.errorCode(body))
}

func (suite *IntegrationTestSuite) stepDuplicateAccountCreation() {
	resp, body, err := suite.createAccount(123, "alice", "500.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusConflict, resp.StatusCode)
	assert.Equal(suite.T(), "duplicate_account", suite.errorCode(body))
}

// Two concurrent transfers that together overdraw the source: exactly
// one succeeds, the balance never goes negative, and the loser gets a
// deterministic business error after its conflict retry.
func (suite *IntegrationTestSuite) stepConcurrentOverdraw() {
	resp, _, err := suite.createAccount(777, "carol", "100.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	resp, _, err = suite.createAccount(778, "dave", "0.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	resp, _, err = suite.createAccount(779, "erin", "0.00")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	type result struct {
		status int
		body   string
	}
	results := make([]result, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp, body, err := suite.transfer(777, 778, "60.00")
		assert.NoError(suite.T(), err)
		results[0] = result{status: resp.StatusCode, body: body}
	}()
	go func() {
		defer wg.Done()
		resp, body, err := suite.transfer(777, 779, "60.00")
		assert.NoError(suite.T(), err)
		results[1] = result{status: resp.StatusCode, body: body}
	}()
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.status == http.StatusCreated {
			succeeded++
		} else {
			assert.Equal(suite.T(), http.StatusUnprocessableEntity, r.status, "loser body: %s", r.body)
			assert.Equal(suite.T(), "insufficient_balance", suite.errorCode(r.body))
		}
	}
	assert.Equal(suite.T(), 1, succeeded)

	suite.assertDecimalEqual("40.00", suite.accountBalance(777))
}

func (suite *IntegrationTestSuite) TestFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test in short mode")
	}

	suite.stepHealthCheck()
	suite.stepCreateAccountsAndProducts()
	suite.stepSuccessfulOrder()
	suite.stepOrderInsufficientStock()
	suite.stepOrderInsufficientBalance()
	suite.stepOrderUnknownProduct()
	suite.stepSuccessfulTransfer()
	suite.stepTransferInsufficientBalance()
	suite.stepSameAccountTransfer()
	suite.stepInvalidAmount()
	suite.stepAccountNotFound()
	suite.stepDuplicateAccountCreation()
	suite.stepConcurrentOverdraw()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
