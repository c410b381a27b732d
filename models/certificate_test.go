package models

import (
	"testing"

	"github.com/agridatabd/coldstore_backend/utils"
)

func makeLines(quantities ...int) []NewCertificateDetail {
	lines := make([]NewCertificateDetail, 0, len(quantities))
	for i, qty := range quantities {
		lines = append(lines, NewCertificateDetail{
			Item:          "01-01-001-0001",
			Unit:          "U1",
			Floor:         "F1",
			Pocket:        string(rune('A' + i)),
			NumberOfSacks: qty,
		})
	}
	return lines
}

func TestValidateDetailBatch(t *testing.T) {
	if err := validateDetailBatch(nil); utils.KindOf(err) != utils.ErrorKindInvalidArgument {
		t.Fatalf("empty batch: kind = %v; want InvalidArgument", utils.KindOf(err))
	}

	huge := make([]NewCertificateDetail, detailBatchCeiling+1)
	for i := range huge {
		huge[i] = NewCertificateDetail{Unit: "U", Floor: "F", Pocket: string(rune(i)), NumberOfSacks: 1}
	}
	if err := validateDetailBatch(huge); utils.KindOf(err) != utils.ErrorKindInvalidArgument {
		t.Fatalf("oversized batch: kind = %v; want InvalidArgument", utils.KindOf(err))
	}

	if err := validateDetailBatch(makeLines(5, 0)); utils.KindOf(err) != utils.ErrorKindInvalidArgument {
		t.Fatalf("non-positive quantity: kind = %v; want InvalidArgument", utils.KindOf(err))
	}

	dupes := makeLines(5, 5)
	dupes[1].Pocket = dupes[0].Pocket
	if err := validateDetailBatch(dupes); utils.KindOf(err) != utils.ErrorKindDuplicateKey {
		t.Fatalf("duplicate keys: kind = %v; want DuplicateKey", utils.KindOf(err))
	}

	if err := validateDetailBatch(makeLines(5, 10, 15)); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
}

func TestCheckDetailQuantityCap(t *testing.T) {
	certificate := &Certificate{TokenNo: "2501-000001", NumberOfSacks: 100}

	// Exceeding the declared total fails.
	err := checkDetailQuantityCap(certificate, 90, makeLines(10, 5))
	if utils.KindOf(err) != utils.ErrorKindQuantityExceeded {
		t.Fatalf("over-allocation: kind = %v; want QuantityExceeded", utils.KindOf(err))
	}

	// Reaching the total exactly is allowed; the cap is inclusive.
	if err := checkDetailQuantityCap(certificate, 90, makeLines(5, 5)); err != nil {
		t.Fatalf("batch reaching the cap rejected: %v", err)
	}

	if err := checkDetailQuantityCap(certificate, 0, makeLines(50, 49)); err != nil {
		t.Fatalf("batch under the cap rejected: %v", err)
	}

	// A certificate with no declared total accepts nothing.
	empty := &Certificate{TokenNo: "2501-000002", NumberOfSacks: 0}
	err = checkDetailQuantityCap(empty, 0, makeLines(1))
	if utils.KindOf(err) != utils.ErrorKindQuantityExceeded {
		t.Fatalf("zero total: kind = %v; want QuantityExceeded", utils.KindOf(err))
	}
}
