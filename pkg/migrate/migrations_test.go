package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/swiftbasket/swiftbasket-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}

func TestInitSchemaContainsSettlementGuards(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	// The settlement invariants live in the schema, not in application code.
	checks := []string{
		"coins      integer NOT NULL DEFAULT 0 CHECK (coins >= 0)",
		"CHECK (coins > 0)",
		"ux_coupon_redemptions_coupon_user ON coupon_redemptions (coupon_id, user_id)",
		"ux_coin_txns_order_added ON coin_transactions (user_id, order_id) WHERE type = 'Added'",
		"ux_coin_rules_subcategory_live ON coin_rules (subcategory_id) WHERE enabled AND NOT deleted",
		"ux_refunds_refund_id",
		"ux_outbox_events_aggregate_event ON outbox_events (event_type, aggregate_id)",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
