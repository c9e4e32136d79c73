package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

type fakeWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.path = path
	f.contentType = contentType
	f.data = b
	return nil
}

type fakeAudit struct {
	event  string
	detail map[string]any
	err    error
}

func (f *fakeAudit) Log(ctx context.Context, event string, detail map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.event = event
	f.detail = detail
	return nil
}

func (f *fakeAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func sampleSettlement() (domain.Market, domain.Settlement) {
	m := domain.Market{
		ID:       7,
		Question: "Will it rain tomorrow?",
		Pools: map[domain.Currency]domain.Pool{
			domain.CurrencyTON: {Yes: big.NewInt(100), No: big.NewInt(300)},
		},
		Outcome:  domain.OutcomeYes,
		Resolved: true,
	}
	s := domain.Settlement{
		MarketID: 7,
		Outcome:  domain.OutcomeYes,
		Fee: map[domain.Currency]*big.Int{
			domain.CurrencyTON: big.NewInt(8),
		},
		Payouts: []domain.Payout{
			{
				PredictionID: "p-1",
				MarketID:     7,
				Bettor:       common.HexToAddress("0x00000000000000000000000000000000000000b1"),
				Currency:     domain.CurrencyTON,
				Amount:       big.NewInt(392),
			},
		},
	}
	return m, s
}

func TestArchiveSettlement(t *testing.T) {
	writer := &fakeWriter{}
	audit := &fakeAudit{}
	a := NewArchiver(writer, audit)

	m, s := sampleSettlement()
	if err := a.ArchiveSettlement(context.Background(), m, s); err != nil {
		t.Fatalf("ArchiveSettlement: %v", err)
	}

	if writer.path != "settlements/market-7.json" {
		t.Errorf("path = %q, want settlements/market-7.json", writer.path)
	}
	if writer.contentType != "application/json" {
		t.Errorf("content type = %q, want application/json", writer.contentType)
	}

	var report SettlementArchive
	if err := json.Unmarshal(writer.data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Market.ID != 7 || report.Settlement.MarketID != 7 {
		t.Errorf("report ids = %d/%d, want 7/7", report.Market.ID, report.Settlement.MarketID)
	}
	if len(report.Settlement.Payouts) != 1 {
		t.Fatalf("payouts = %d, want 1", len(report.Settlement.Payouts))
	}
	if report.Settlement.Payouts[0].Amount.Cmp(big.NewInt(392)) != 0 {
		t.Errorf("payout amount = %s, want 392", report.Settlement.Payouts[0].Amount)
	}
	if report.ArchivedAt.IsZero() {
		t.Error("ArchivedAt is zero")
	}

	if audit.event != "archive.settlement" {
		t.Errorf("audit event = %q, want archive.settlement", audit.event)
	}
	if audit.detail["path"] != writer.path {
		t.Errorf("audit path = %v, want %q", audit.detail["path"], writer.path)
	}
}

func TestArchiveSettlementUploadError(t *testing.T) {
	uploadErr := errors.New("bucket unavailable")
	a := NewArchiver(&fakeWriter{err: uploadErr}, &fakeAudit{})

	m, s := sampleSettlement()
	err := a.ArchiveSettlement(context.Background(), m, s)
	if !errors.Is(err, uploadErr) {
		t.Fatalf("err = %v, want wrapped %v", err, uploadErr)
	}
}
