package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/models"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
)

// Covers the full document lifecycle against a real MySQL: tokens, booking,
// certificate with detail lines, transfer and challan, with the ledger
// balances checked at each step.
func TestDocumentLifecycle(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	tokens, err := models.GenerateTokens(ctx, 3)
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	for _, token := range tokens {
		if token.Status != models.TokenStatusPending {
			t.Fatalf("new token %s status = %s; want Pending", token.TokenNo, token.Status)
		}
	}
	tokenNo := tokens[0].TokenNo

	// A certificate against a Pending token is refused.
	_, err = models.CreateCertificate(ctx, &models.NewCertificate{
		TokenNo:       tokenNo,
		Mobile:        "01712345678",
		CustomerName:  "Abdul Karim",
		NumberOfSacks: 100,
	})
	if utils.KindOf(err) != utils.ErrorKindInvalidState {
		t.Fatalf("certificate on Pending token: kind = %v; want InvalidState", utils.KindOf(err))
	}

	if _, err := models.RecordSackCount(ctx, tokenNo, 100); err != nil {
		t.Fatalf("RecordSackCount: %v", err)
	}

	booking, err := models.CreateBooking(ctx, &models.NewBooking{
		Mobile:       "01712345678",
		CustomerName: "Abdul Karim",
		Village:      "Charghat",
		SackEstimate: 100,
		Advance:      decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if !booking.CustomerCreated {
		t.Fatal("booking should have created the customer profile")
	}
	if !strings.HasPrefix(booking.Booking.BookingNo, "B") {
		t.Fatalf("booking number %q missing B prefix", booking.Booking.BookingNo)
	}

	certResult, err := models.CreateCertificate(ctx, &models.NewCertificate{
		TokenNo:       tokenNo,
		BookingNo:     booking.Booking.BookingNo,
		Mobile:        "01712345678",
		CustomerName:  "Abdul Karim",
		FatherName:    "Rahim Uddin",
		NumberOfSacks: 100,
		RentPerSack:   decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	if certResult.CustomerCreated {
		t.Fatal("certificate should have reused the booking's customer")
	}
	if certResult.Certificate.CustomerCode != booking.Customer.CustomerCode {
		t.Fatalf("certificate customer code %s != booking customer code %s",
			certResult.Certificate.CustomerCode, booking.Customer.CustomerCode)
	}
	// The upsert merged the father name in; the snapshot carries it.
	if certResult.Certificate.FatherName != "Rahim Uddin" {
		t.Fatalf("certificate father name = %q; want merged value", certResult.Certificate.FatherName)
	}

	// Read-after-write: the consumed token reads Completed.
	token, err := models.GetToken(ctx, tokenNo)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token.Status != models.TokenStatusCompleted {
		t.Fatalf("token status after certificate = %s; want Completed", token.Status)
	}

	// A second certificate for the same token is refused.
	_, err = models.CreateCertificate(ctx, &models.NewCertificate{
		TokenNo:       tokenNo,
		Mobile:        "01712345678",
		CustomerName:  "Abdul Karim",
		NumberOfSacks: 100,
	})
	if utils.KindOf(err) != utils.ErrorKindInvalidState {
		t.Fatalf("second certificate: kind = %v; want InvalidState", utils.KindOf(err))
	}

	// Details beyond the declared total are refused before any write.
	_, err = models.AddCertificateDetails(ctx, tokenNo, []models.NewCertificateDetail{
		{Item: "01-01-001-0001", Unit: "U1", Floor: "F1", Pocket: "PA", NumberOfSacks: 90},
		{Item: "01-01-001-0001", Unit: "U1", Floor: "F1", Pocket: "PB", NumberOfSacks: 15},
	})
	if utils.KindOf(err) != utils.ErrorKindQuantityExceeded {
		t.Fatalf("over-allocation: kind = %v; want QuantityExceeded", utils.KindOf(err))
	}

	details, err := models.AddCertificateDetails(ctx, tokenNo, []models.NewCertificateDetail{
		{Item: "01-01-001-0001", Unit: "U1", Floor: "F1", Pocket: "PA", NumberOfSacks: 50, RentPerSack: decimal.NewFromInt(50)},
		{Item: "01-01-001-0001", Unit: "U1", Floor: "F1", Pocket: "PB", NumberOfSacks: 50, RentPerSack: decimal.NewFromInt(50)},
	})
	if err != nil {
		t.Fatalf("AddCertificateDetails: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 detail rows, got %d", len(details))
	}

	// The receipt credits landed in the ledger.
	db := config.GetDB()
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	levelPA, err := models.CurrentStockLevel(db, ctx, businessId, tokenNo, "U1", "F1", "PA")
	if err != nil {
		t.Fatalf("CurrentStockLevel(PA): %v", err)
	}
	if !levelPA.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("stock at PA = %s; want 50", levelPA)
	}

	// Adding the same location again is a duplicate.
	_, err = models.AddCertificateDetails(ctx, tokenNo, []models.NewCertificateDetail{
		{Item: "01-01-001-0001", Unit: "U1", Floor: "F1", Pocket: "PA", NumberOfSacks: 1},
	})
	if utils.KindOf(err) != utils.ErrorKindDuplicateKey {
		t.Fatalf("re-added location: kind = %v; want DuplicateKey", utils.KindOf(err))
	}

	// Transfer more than available fails and posts nothing.
	_, err = models.CreateTransferOrder(ctx, &models.NewTransferOrder{
		TokenNo:  tokenNo,
		FromUnit: "U1", FromFloor: "F1", FromPocket: "PA",
		ToUnit: "U2", ToFloor: "F2", ToPocket: "PC",
		NumberOfSacks: 60,
	})
	var insufficient *utils.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("oversized transfer: %v; want InsufficientStockError", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(50)) || !insufficient.Requested.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("insufficiency quantities: available=%s requested=%s; want 50/60",
			insufficient.Available, insufficient.Requested)
	}

	order, err := models.CreateTransferOrder(ctx, &models.NewTransferOrder{
		TokenNo:  tokenNo,
		FromUnit: "U1", FromFloor: "F1", FromPocket: "PA",
		ToUnit: "U2", ToFloor: "F2", ToPocket: "PC",
		NumberOfSacks: 20,
	})
	if err != nil {
		t.Fatalf("CreateTransferOrder: %v", err)
	}
	if order.Status != models.TransferOrderStatusInProgress {
		t.Fatalf("transfer status = %s; want In Progress", order.Status)
	}
	if !strings.HasPrefix(order.TransferNo, "TO-") {
		t.Fatalf("transfer number %q missing TO- prefix", order.TransferNo)
	}

	levelPA, _ = models.CurrentStockLevel(db, ctx, businessId, tokenNo, "U1", "F1", "PA")
	levelPC, _ := models.CurrentStockLevel(db, ctx, businessId, tokenNo, "U2", "F2", "PC")
	if !levelPA.Equal(decimal.NewFromInt(30)) || !levelPC.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("post-transfer levels: from=%s to=%s; want 30/20", levelPA, levelPC)
	}

	var movementCount int64
	err = db.Model(&models.StockMovement{}).
		Where("business_id = ? AND doc_number = ?", businessId, order.TransferNo).
		Count(&movementCount).Error
	if err != nil || movementCount != 2 {
		t.Fatalf("transfer movement rows = %d (err %v); want 2", movementCount, err)
	}

	if _, err := models.UpdateTransferOrderStatus(ctx, order.TransferNo, models.TransferOrderStatusCompleted); err != nil {
		t.Fatalf("UpdateTransferOrderStatus: %v", err)
	}

	// Deliver 10 and 15 sacks; settlement per the challan arithmetic.
	challan, err := models.CreateDeliveryChallan(ctx, &models.NewDeliveryChallan{
		TokenNo: tokenNo,
		Lines: []models.NewChallanLine{
			{Unit: "U1", Floor: "F1", Pocket: "PA", Qty: decimal.NewFromInt(10)},
			{Unit: "U1", Floor: "F1", Pocket: "PB", Qty: decimal.NewFromInt(15)},
		},
		HandlingCharge: decimal.NewFromInt(100),
		InterestAmount: decimal.NewFromInt(20),
		LoanRepayment:  decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("CreateDeliveryChallan: %v", err)
	}
	if challan.Challan.Status != models.ChallanStatusIssued {
		t.Fatalf("challan status = %s; want Issued", challan.Challan.Status)
	}
	if !challan.Challan.TotalAmount.Equal(decimal.NewFromInt(1170)) {
		t.Fatalf("challan total = %s; want 1170", challan.Challan.TotalAmount)
	}
	if challan.Challan.CustomerCode != booking.Customer.CustomerCode {
		t.Fatalf("challan customer snapshot = %s; want %s",
			challan.Challan.CustomerCode, booking.Customer.CustomerCode)
	}

	levelPA, _ = models.CurrentStockLevel(db, ctx, businessId, tokenNo, "U1", "F1", "PA")
	levelPB, _ := models.CurrentStockLevel(db, ctx, businessId, tokenNo, "U1", "F1", "PB")
	if !levelPA.Equal(decimal.NewFromInt(20)) || !levelPB.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("post-delivery levels: PA=%s PB=%s; want 20/35", levelPA, levelPB)
	}

	// Two lines drawing from the same pocket are checked against their
	// combined quantity: 15 + 10 from PA with only 20 left must fail even
	// though each line alone fits.
	_, err = models.CreateDeliveryChallan(ctx, &models.NewDeliveryChallan{
		TokenNo: tokenNo,
		Lines: []models.NewChallanLine{
			{Unit: "U1", Floor: "F1", Pocket: "PA", Qty: decimal.NewFromInt(15)},
			{Unit: "U1", Floor: "F1", Pocket: "PA", Qty: decimal.NewFromInt(10)},
		},
	})
	if !errors.As(err, &insufficient) {
		t.Fatalf("split over-draw: %v; want InsufficientStockError", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(20)) || !insufficient.Requested.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("split over-draw quantities: available=%s requested=%s; want 20/25",
			insufficient.Available, insufficient.Requested)
	}

	if _, err := models.PostCertificate(ctx, tokenNo); err != nil {
		t.Fatalf("PostCertificate: %v", err)
	}
	_, err = models.PostCertificate(ctx, tokenNo)
	if utils.KindOf(err) != utils.ErrorKindInvalidState {
		t.Fatalf("double post: kind = %v; want InvalidState", utils.KindOf(err))
	}

	balances, err := models.StockBalances(db, ctx, businessId, models.StockBalanceFilter{TokenNo: tokenNo})
	if err != nil {
		t.Fatalf("StockBalances: %v", err)
	}
	total := decimal.Zero
	for _, b := range balances {
		if b.NumberOfSacks.IsNegative() {
			t.Fatalf("negative balance at %s/%s/%s: %s", b.Unit, b.Floor, b.Pocket, b.NumberOfSacks)
		}
		total = total.Add(b.NumberOfSacks)
	}
	// 100 received - 25 delivered; transfers only move stock around.
	if !total.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("total remaining stock = %s; want 75", total)
	}

	// Detail lines can arrive in several batches while under the cap; the
	// ledger rows of the later batch continue the document's row numbering
	// instead of colliding with the first batch's rows.
	secondToken := tokens[1].TokenNo
	if _, err := models.RecordSackCount(ctx, secondToken, 40); err != nil {
		t.Fatalf("RecordSackCount(second): %v", err)
	}
	if _, err := models.CreateCertificate(ctx, &models.NewCertificate{
		TokenNo:       secondToken,
		Mobile:        "01712345678",
		CustomerName:  "Abdul Karim",
		NumberOfSacks: 40,
		RentPerSack:   decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("CreateCertificate(second): %v", err)
	}
	if _, err := models.AddCertificateDetails(ctx, secondToken, []models.NewCertificateDetail{
		{Item: "01-01-001-0001", Unit: "U3", Floor: "F1", Pocket: "PA", NumberOfSacks: 25},
	}); err != nil {
		t.Fatalf("first detail batch: %v", err)
	}
	if _, err := models.AddCertificateDetails(ctx, secondToken, []models.NewCertificateDetail{
		{Item: "01-01-001-0001", Unit: "U3", Floor: "F1", Pocket: "PB", NumberOfSacks: 15},
	}); err != nil {
		t.Fatalf("second detail batch: %v", err)
	}
	var receiptRows []*models.StockMovement
	err = db.Where("business_id = ? AND doc_number = ?", businessId, secondToken).
		Order("doc_row").Find(&receiptRows).Error
	if err != nil {
		t.Fatalf("load receipt rows: %v", err)
	}
	if len(receiptRows) != 2 || receiptRows[0].DocRow != 1 || receiptRows[1].DocRow != 2 {
		t.Fatalf("receipt rows across batches = %d (rows %v); want 2 rows numbered 1, 2",
			len(receiptRows), receiptRows)
	}

	// Documents cannot be issued under a tenant that does not exist.
	ghostCtx := utils.SetBusinessIdInContext(ctx, "no-such-business")
	_, err = models.GenerateTokens(ghostCtx, 1)
	if utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Fatalf("tokens for unknown tenant: kind = %v; want NotFound", utils.KindOf(err))
	}
	_, err = models.CreateTransferOrder(ghostCtx, &models.NewTransferOrder{
		TokenNo:  tokenNo,
		FromUnit: "U1", FromFloor: "F1", FromPocket: "PA",
		ToUnit: "U2", ToFloor: "F2", ToPocket: "PC",
		NumberOfSacks: 1,
	})
	if utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Fatalf("transfer for unknown tenant: kind = %v; want NotFound", utils.KindOf(err))
	}
}

// N concurrent generations must produce N distinct numbers.
func TestTokenSequenceConcurrency(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	const n = 100
	var mu sync.Mutex
	var wg sync.WaitGroup
	numbers := make(map[string]bool, n)
	errCh := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var tokens []*models.StorageToken
			var err error
			for attempt := 0; attempt < 5; attempt++ {
				tokens, err = models.GenerateTokens(ctx, 1)
				if utils.KindOf(err) != utils.ErrorKindSequenceContention {
					break
				}
				time.Sleep(time.Duration(50+attempt*100) * time.Millisecond)
			}
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			numbers[tokens[0].TokenNo] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("GenerateTokens: %v", err)
	}

	if len(numbers) != n {
		t.Fatalf("expected %d distinct token numbers, got %d", n, len(numbers))
	}
}

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", "")
	// Every concurrent issuer pins a GET_LOCK connection for the duration of
	// its wait, plus one for the transaction; size the pool so the holder can
	// always commit, and let waiters outlast a full serial burst.
	t.Setenv("DB_MAX_OPEN_CONNS", "250")
	t.Setenv("SEQUENCE_LOCK_TIMEOUT_SECONDS", "30")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "coldstore_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	company, err := models.CreateCompany(ctx, &models.NewCompanyProfile{
		BusinessName: "Rajshahi Cold Storage Ltd",
		ShortName:    "RCS",
	})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	return utils.SetBusinessIdInContext(ctx, company.BusinessId)
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("coldstore-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=coldstore_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
