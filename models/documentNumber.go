package models

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// NumberSeries describes one business-scoped document number sequence.
// All series are tenant-scoped: two tenants may issue the same number.
type NumberSeries struct {
	Name   string
	Table  string
	Column string
	// Width of the zero-padded serial suffix.
	Width int
	// Prefix builds the period prefix for a posting time, e.g. "TO-25-".
	Prefix func(now time.Time) string
}

var (
	TokenSeries = NumberSeries{
		Name:   "Token",
		Table:  "storage_tokens",
		Column: "token_no",
		Width:  6,
		Prefix: func(now time.Time) string { return now.Format("0601") + "-" },
	}
	BookingSeries = NumberSeries{
		Name:   "Booking",
		Table:  "bookings",
		Column: "booking_no",
		Width:  5,
		Prefix: func(now time.Time) string { return "B" + now.Format("06") + "-" },
	}
	TransferOrderSeries = NumberSeries{
		Name:   "TransferOrder",
		Table:  "transfer_orders",
		Column: "transfer_no",
		Width:  6,
		Prefix: func(now time.Time) string { return "TO-" + now.Format("06") + "-" },
	}
	ChallanSeries = NumberSeries{
		Name:   "Challan",
		Table:  "delivery_challans",
		Column: "challan_no",
		Width:  6,
		Prefix: func(now time.Time) string { return "CL-" + now.Format("06") + "-" },
	}
	CustomerCodeSeries = NumberSeries{
		Name:   "CustomerCode",
		Table:  "customer_profiles",
		Column: "customer_code",
		Width:  6,
		Prefix: func(time.Time) string { return "CRT-" },
	}
)

// SequenceLease is the held serialization lock for one (tenant, prefix)
// pair. The next-number read scans committed MAX values, so the lease must
// stay held until the transaction that inserts the issued numbers has
// committed: acquire before opening the transaction, defer Release outside
// it. Releasing early reopens the race the lock exists to close.
type SequenceLease struct {
	businessId string
	series     NumberSeries
	prefix     string
	release    func()
}

// AcquireSequence locks the series for the tenant. Fails with
// SequenceContention when the lock cannot be obtained within the bounded
// wait; callers may retry.
func AcquireSequence(ctx context.Context, businessId string, series NumberSeries) (*SequenceLease, error) {
	prefix := series.Prefix(time.Now())
	release, err := acquireSequenceLock(ctx, businessId, prefix)
	if err != nil {
		return nil, err
	}
	return &SequenceLease{
		businessId: businessId,
		series:     series,
		prefix:     prefix,
		release:    release,
	}, nil
}

func (l *SequenceLease) Release() {
	if l.release != nil {
		l.release()
		l.release = nil
	}
}

// Next issues the next number of the leased series.
func (l *SequenceLease) Next(tx *gorm.DB) (string, error) {
	numbers, err := l.NextN(tx, 1)
	if err != nil {
		return "", err
	}
	return numbers[0], nil
}

// NextN issues a consecutive block of n numbers (bulk token generation).
func (l *SequenceLease) NextN(tx *gorm.DB, n int) ([]string, error) {
	if n <= 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "number count must be greater than 0")
	}
	if l.release == nil {
		return nil, utils.NewError(utils.ErrorKindSequenceContention, "sequence lease for %s already released", l.prefix)
	}

	var last *string
	err := tx.Table(l.series.Table).
		Select("MAX(" + l.series.Column + ")").
		Where("business_id = ? AND "+l.series.Column+" LIKE ?", l.businessId, l.prefix+"%").
		Scan(&last).Error
	if err != nil {
		return nil, err
	}

	serial := 1
	if last != nil {
		serial = nextSerial(*last, l.prefix)
	}

	numbers := make([]string, 0, n)
	for i := 0; i < n; i++ {
		numbers = append(numbers, formatDocumentNumber(l.prefix, serial+i, l.series.Width))
	}
	return numbers, nil
}

// nextSerial parses the serial suffix of the last issued number and
// increments it. A garbled suffix restarts the series at 1, matching the
// fallback the number formats were specified with.
func nextSerial(last string, prefix string) int {
	suffix := strings.TrimPrefix(last, prefix)
	serial, err := strconv.Atoi(suffix)
	if err != nil || serial < 0 {
		return 1
	}
	return serial + 1
}

func formatDocumentNumber(prefix string, serial int, width int) string {
	return prefix + fmt.Sprintf("%0*d", width, serial)
}

func sequenceLockTimeout() time.Duration {
	if v := strings.TrimSpace(os.Getenv("SEQUENCE_LOCK_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 5 * time.Second
}

// acquireSequenceLock serializes issuance per (tenant, prefix). Uses
// redislock across instances when Redis is configured; otherwise a MySQL
// advisory lock on a dedicated connection. GET_LOCK is session-scoped, so
// the connection is pinned and held until release. All instances of a
// deployment must share the lock backend.
func acquireSequenceLock(ctx context.Context, businessId string, prefix string) (func(), error) {
	lockName := fmt.Sprintf("seq:%s:%s", businessId, prefix)
	timeout := sequenceLockTimeout()

	if locker := config.GetRedisLock(); locker != nil {
		// TTL well past the lock wait so a slow transaction cannot lose
		// the lease mid-flight.
		lock, err := locker.Obtain(ctx, lockName, timeout+30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(timeout/(100*time.Millisecond))),
		})
		if err != nil {
			if err == redislock.ErrNotObtained {
				return nil, utils.NewError(utils.ErrorKindSequenceContention, "could not acquire sequence lock for %s", prefix)
			}
			return nil, err
		}
		return func() { _ = lock.Release(context.Background()) }, nil
	}

	sqlDB, err := config.GetDB().DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var ok int
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", lockName, int(timeout.Seconds())).Scan(&ok)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if ok != 1 {
		_ = conn.Close()
		return nil, utils.NewError(utils.ErrorKindSequenceContention, "could not acquire sequence lock for %s", prefix)
	}
	return func() {
		_, _ = conn.ExecContext(context.Background(), "DO RELEASE_LOCK(?)", lockName)
		_ = conn.Close()
	}, nil
}
