package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSettlementTotal(t *testing.T) {
	// Two delivery lines of 10 and 15 sacks at a rent of 50 each.
	rate := decimal.NewFromInt(50)
	itemsTotal := decimal.NewFromInt(10).Mul(rate).Add(decimal.NewFromInt(15).Mul(rate))
	if !itemsTotal.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("items total = %s; want 1250", itemsTotal)
	}

	challan := &DeliveryChallan{
		HandlingCharge: decimal.NewFromInt(100),
		InterestAmount: decimal.NewFromInt(20),
		LoanRepayment:  decimal.NewFromInt(200),
	}
	total := settlementTotal(itemsTotal, challan)
	if !total.Equal(decimal.NewFromInt(1170)) {
		t.Fatalf("settlement total = %s; want 1170", total)
	}
}

func TestRequestedByLocation(t *testing.T) {
	lines := []NewChallanLine{
		{Unit: "U1", Floor: "F1", Pocket: "PA", Qty: decimal.NewFromInt(15)},
		{Unit: "U1", Floor: "F1", Pocket: "PA", Qty: decimal.NewFromInt(10)},
		{Unit: "U1", Floor: "F1", Pocket: "PB", Qty: decimal.NewFromInt(5)},
	}
	requested := requestedByLocation(lines)
	if len(requested) != 2 {
		t.Fatalf("expected 2 location keys, got %d", len(requested))
	}
	// Two lines drawing from PA count against the pocket together.
	pa := requested[challanLocation{Unit: "U1", Floor: "F1", Pocket: "PA"}]
	if !pa.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("requested at PA = %s; want 25", pa)
	}
	pb := requested[challanLocation{Unit: "U1", Floor: "F1", Pocket: "PB"}]
	if !pb.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("requested at PB = %s; want 5", pb)
	}
}

func TestSettlementTotalAllCharges(t *testing.T) {
	challan := &DeliveryChallan{
		HandlingCharge:  decimal.NewFromInt(100),
		EmptySackCharge: decimal.NewFromInt(60),
		FanCharge:       decimal.NewFromInt(40),
		InterestAmount:  decimal.NewFromInt(25),
		LoanRepayment:   decimal.NewFromInt(500),
	}
	total := settlementTotal(decimal.NewFromInt(1000), challan)
	if !total.Equal(decimal.NewFromInt(725)) {
		t.Fatalf("settlement total = %s; want 725", total)
	}

	// The loan repayment can push the settlement negative; the challan
	// records it as-is.
	challan.LoanRepayment = decimal.NewFromInt(2000)
	total = settlementTotal(decimal.NewFromInt(1000), challan)
	if !total.Equal(decimal.NewFromInt(-775)) {
		t.Fatalf("settlement total = %s; want -775", total)
	}
}
