package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/agridatabd/coldstore_backend/config"
)

// stock-recheck scans the movement ledger for location keys whose running
// balance has gone negative. A validated debit can never take a balance
// below zero, so any hit here means a posting bypassed the availability
// check and needs an offsetting correction entry.
//
// Example:
//
//	go run ./cmd/stock-recheck/ -business-id=9f1c2a...
func main() {
	businessID := flag.String("business-id", "", "Optional: check only one business. If empty, checks all businesses.")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	type row struct {
		BusinessId string
		TokenNo    string
		Unit       string
		Floor      string
		Pocket     string
		Balance    string
	}

	where := ""
	args := []any{}
	if strings.TrimSpace(*businessID) != "" {
		where = "WHERE business_id = ?"
		args = append(args, strings.TrimSpace(*businessID))
	}

	sql := fmt.Sprintf(`
SELECT
  business_id,
  token_no,
  unit,
  floor,
  pocket,
  SUM(sign * qty) AS balance
FROM stock_movements
%s
GROUP BY business_id, token_no, unit, floor, pocket
HAVING SUM(sign * qty) < 0
ORDER BY business_id, token_no
`, where)

	var rows []row
	if err := db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("no negative balances found")
		return
	}

	fmt.Printf("found %d negative balance(s):\n", len(rows))
	for _, r := range rows {
		fmt.Printf("business_id=%s token_no=%s unit=%s floor=%s pocket=%s balance=%s\n",
			r.BusinessId, r.TokenNo, r.Unit, r.Floor, r.Pocket, r.Balance)
	}
	os.Exit(1)
}
