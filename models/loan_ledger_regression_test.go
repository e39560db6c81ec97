package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/models"
	"github.com/mmdatafocus/loans_backend/models/reports"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
)

// Regression: the full posting path against real MySQL/Redis. Creation freezes
// the amortization, payments roll balances forward atomically, reminders write
// an outbox row in the same transaction.
func TestLoanLedger_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "loans_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	businessID := "biz-regression-1"
	ctx = utils.SetBusinessIdInContext(ctx, businessID)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	// Create: amortization figures frozen at creation time.
	loan, err := models.CreateLoan(ctx, &models.NewLoanApplication{
		FullName:          "Priya Sharma",
		Email:             "priya.sharma@example.com",
		Phone:             "+919876543210",
		LoanType:          models.LoanTypePersonal,
		Principal:         decimal.NewFromInt(100000),
		TermMonths:        12,
		AnnualRatePercent: decimal.NewFromInt(12),
		AnnualIncome:      decimal.NewFromInt(840000),
		EmploymentType:    models.EmploymentTypeSalaried,
	})
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if !loan.Installment.Equal(decimal.RequireFromString("8884.88")) {
		t.Fatalf("installment = %s; want 8884.88", loan.Installment)
	}
	if !loan.TotalPayable.Equal(decimal.RequireFromString("106618.56")) {
		t.Fatalf("total payable = %s; want 106618.56", loan.TotalPayable)
	}
	if loan.Status != models.LoanStatusPending || loan.PaymentStatus != models.LoanPaymentStatusPending {
		t.Fatalf("new loan status = %s/%s; want pending/pending", loan.Status, loan.PaymentStatus)
	}

	// Duplicate loan id is rejected, not silently re-created.
	_, err = models.CreateLoan(ctx, &models.NewLoanApplication{
		LoanId:            loan.LoanId,
		FullName:          "Priya Sharma",
		Email:             "priya.sharma@example.com",
		Phone:             "+919876543210",
		LoanType:          models.LoanTypePersonal,
		Principal:         decimal.NewFromInt(100000),
		TermMonths:        12,
		AnnualRatePercent: decimal.NewFromInt(12),
		AnnualIncome:      decimal.NewFromInt(840000),
		EmploymentType:    models.EmploymentTypeSalaried,
	})
	if utils.KindOf(err) != utils.ErrDuplicateLoanId {
		t.Fatalf("duplicate create: kind = %v; want DuplicateLoanId", utils.KindOf(err))
	}

	// Lookup misses surface as LoanNotFound.
	if _, err := models.GetLoanByLoanId(ctx, "LN-0000000000000-FFFFFFFF"); utils.KindOf(err) != utils.ErrLoanNotFound {
		t.Fatalf("missing loan: kind = %v; want LoanNotFound", utils.KindOf(err))
	}

	// Non-positive amounts never reach the ledger.
	if _, err := models.RecordLoanPayment(ctx, loan.LoanId, &models.NewLoanPayment{Amount: decimal.Zero}); utils.KindOf(err) != utils.ErrInvalidPaymentAmount {
		t.Fatalf("zero payment: kind = %v; want InvalidPaymentAmount", utils.KindOf(err))
	}

	// First installment: partial.
	after1, err := models.RecordLoanPayment(ctx, loan.LoanId, &models.NewLoanPayment{
		Amount: decimal.RequireFromString("8884.88"),
		Method: "upi",
	})
	if err != nil {
		t.Fatalf("RecordLoanPayment #1: %v", err)
	}
	if after1.PaymentStatus != models.LoanPaymentStatusPartial {
		t.Fatalf("payment status after #1 = %s; want partial", after1.PaymentStatus)
	}
	if !after1.RemainingAmount.Equal(decimal.RequireFromString("97733.68")) {
		t.Fatalf("remaining after #1 = %s; want 97733.68", after1.RemainingAmount)
	}

	// Pay off the rest exactly: completed, remaining zero.
	after2, err := models.RecordLoanPayment(ctx, loan.LoanId, &models.NewLoanPayment{
		Amount: after1.RemainingAmount,
		Method: "bank-transfer",
	})
	if err != nil {
		t.Fatalf("RecordLoanPayment #2: %v", err)
	}
	if after2.PaymentStatus != models.LoanPaymentStatusCompleted {
		t.Fatalf("payment status after #2 = %s; want completed", after2.PaymentStatus)
	}
	if !after2.RemainingAmount.IsZero() {
		t.Fatalf("remaining after #2 = %s; want 0", after2.RemainingAmount)
	}
	if len(after2.Payments) != 2 {
		t.Fatalf("payment history length = %d; want 2", len(after2.Payments))
	}

	// Ledger invariant: stored paid_amount equals the sum of payment rows.
	db := config.GetDB()
	var summed decimal.Decimal
	if err := db.WithContext(ctx).Table("loan_payments").
		Where("loan_id = ?", after2.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&summed).Error; err != nil {
		t.Fatalf("sum payments: %v", err)
	}
	if !summed.Equal(after2.PaidAmount) {
		t.Fatalf("payment rows sum to %s but paid_amount = %s", summed, after2.PaidAmount)
	}

	// Reminder writes intent and outbox in one transaction.
	if _, err := models.ScheduleLoanReminder(ctx, loan.LoanId, &models.NewLoanReminder{
		ReminderType: "payment_due",
		Message:      "Installment due soon",
	}); err != nil {
		t.Fatalf("ScheduleLoanReminder: %v", err)
	}
	reminders, err := models.ListLoanReminders(ctx, loan.LoanId)
	if err != nil {
		t.Fatalf("ListLoanReminders: %v", err)
	}
	if len(reminders) != 1 || reminders[0].Status != models.ReminderStatusSent {
		t.Fatalf("reminders = %d rows; want 1 sent", len(reminders))
	}
	if reminders[0].ReminderType != "payment_due" {
		t.Fatalf("reminder type = %s; want payment_due", reminders[0].ReminderType)
	}
	var outbox models.NotificationOutbox
	if err := db.WithContext(ctx).Where("loan_id = ?", after2.ID).First(&outbox).Error; err != nil {
		t.Fatalf("expected outbox row for reminder: %v", err)
	}
	if outbox.PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("outbox status = %s; want PENDING", outbox.PublishStatus)
	}
	if outbox.Recipient != "priya.sharma@example.com" {
		t.Fatalf("outbox recipient = %s", outbox.Recipient)
	}
	var payload map[string]any
	if err := utils.UnmarshalFromJSON(outbox.Payload, &payload); err != nil {
		t.Fatalf("decode outbox payload: %v", err)
	}
	if payload["loan_id"] != loan.LoanId {
		t.Fatalf("outbox payload loan_id = %v; want %s", payload["loan_id"], loan.LoanId)
	}

	// Status lifecycle.
	approved, err := models.TransitionLoanStatus(ctx, loan.LoanId, models.LoanStatusApproved)
	if err != nil {
		t.Fatalf("TransitionLoanStatus: %v", err)
	}
	if approved.Status != models.LoanStatusApproved {
		t.Fatalf("status = %s; want approved", approved.Status)
	}
	disbursed, err := models.TransitionLoanStatus(ctx, loan.LoanId, models.LoanStatusDisbursed)
	if err != nil {
		t.Fatalf("TransitionLoanStatus to disbursed: %v", err)
	}
	if disbursed.Status != models.LoanStatusDisbursed {
		t.Fatalf("status = %s; want disbursed", disbursed.Status)
	}
	if _, err := models.TransitionLoanStatus(ctx, loan.LoanId, "frozen"); utils.KindOf(err) != utils.ErrInvalidStatus {
		t.Fatalf("bogus status: kind = %v; want InvalidStatus", utils.KindOf(err))
	}

	// Book summary reflects the single fully-paid loan.
	summary, err := reports.GetLoanBookSummary(ctx)
	if err != nil {
		t.Fatalf("GetLoanBookSummary: %v", err)
	}
	if summary.TotalLoans != 1 {
		t.Fatalf("total loans = %d; want 1", summary.TotalLoans)
	}
	if !summary.TotalPaid.Equal(after2.PaidAmount) {
		t.Fatalf("summary paid = %s; want %s", summary.TotalPaid, after2.PaidAmount)
	}
	if !summary.TotalOutstanding.IsZero() {
		t.Fatalf("summary outstanding = %s; want 0", summary.TotalOutstanding)
	}
}

// Regression: concurrent postings against one loan must serialize. Without the
// row lock on the re-read, two writers can compute balances from the same
// snapshot and one payment silently vanishes from paid_amount.
func TestLoanLedger_ConcurrentPayments(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "loans_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetBusinessIdInContext(ctx, "biz-concurrent-1")

	loan, err := models.CreateLoan(ctx, &models.NewLoanApplication{
		FullName:          "Rohit Verma",
		Email:             "rohit.verma@example.com",
		Phone:             "+919876543211",
		LoanType:          models.LoanTypePersonal,
		Principal:         decimal.NewFromInt(100000),
		TermMonths:        12,
		AnnualRatePercent: decimal.NewFromInt(12),
		AnnualIncome:      decimal.NewFromInt(900000),
		EmploymentType:    models.EmploymentTypeSalaried,
	})
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	// 4 writers x 3 installments of 8884.88 = 106618.56, the exact payoff.
	const writers = 4
	const perWriter = 3
	installment := decimal.RequireFromString("8884.88")

	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := models.RecordLoanPayment(ctx, loan.LoanId, &models.NewLoanPayment{
					Amount: installment,
					Method: "upi",
				}); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent RecordLoanPayment: %v", err)
	}

	after, err := models.GetLoanByLoanId(ctx, loan.LoanId)
	if err != nil {
		t.Fatalf("GetLoanByLoanId: %v", err)
	}

	want := installment.Mul(decimal.NewFromInt(writers * perWriter))
	if !after.PaidAmount.Equal(want) {
		t.Fatalf("paid_amount = %s; want %s (lost update)", after.PaidAmount, want)
	}
	if !after.RemainingAmount.IsZero() {
		t.Fatalf("remaining = %s; want 0", after.RemainingAmount)
	}
	if after.PaymentStatus != models.LoanPaymentStatusCompleted {
		t.Fatalf("payment status = %s; want completed", after.PaymentStatus)
	}
	if len(after.Payments) != writers*perWriter {
		t.Fatalf("payment rows = %d; want %d", len(after.Payments), writers*perWriter)
	}

	db := config.GetDB()
	var summed decimal.Decimal
	if err := db.WithContext(ctx).Table("loan_payments").
		Where("loan_id = ?", after.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&summed).Error; err != nil {
		t.Fatalf("sum payments: %v", err)
	}
	if !summed.Equal(after.PaidAmount) {
		t.Fatalf("payment rows sum to %s but paid_amount = %s", summed, after.PaidAmount)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("loans-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("loans-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=loans_test",
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
