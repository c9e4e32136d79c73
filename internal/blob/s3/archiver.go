package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oddslab/predictd/internal/domain"
)

// SettlementArchive is the JSON document written to cold storage for each
// resolved market: the final market state plus the full settlement breakdown.
type SettlementArchive struct {
	Market     domain.Market     `json:"market"`
	Settlement domain.Settlement `json:"settlement"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// Archiver implements domain.SettlementArchiver by serializing settlement
// reports and uploading them to S3. Reports are immutable once written; a
// market settles exactly once.
type Archiver struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		audit:  audit,
	}
}

var _ domain.SettlementArchiver = (*Archiver)(nil)

// ArchiveSettlement uploads the settlement report of a resolved market to
// settlements/market-{id}.json and records the archival in the audit log.
func (a *Archiver) ArchiveSettlement(ctx context.Context, market domain.Market, settlement domain.Settlement) error {
	report := SettlementArchive{
		Market:     market,
		Settlement: settlement,
		ArchivedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("s3blob: marshal settlement report %d: %w", market.ID, err)
	}

	path := settlementPath(market.ID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload settlement report %d: %w", market.ID, err)
	}

	if err := a.audit.Log(ctx, "archive.settlement", map[string]any{
		"path":      path,
		"market_id": market.ID,
		"outcome":   int(settlement.Outcome),
		"payouts":   len(settlement.Payouts),
	}); err != nil {
		return fmt.Errorf("s3blob: settlement archive audit log: %w", err)
	}

	return nil
}

// settlementPath builds the S3 key for a settlement report.
//
//	settlements/market-42.json
func settlementPath(marketID uint64) string {
	return fmt.Sprintf("settlements/market-%d.json", marketID)
}
