package aggregates

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
)

// casModuleStatus moves a module to `to` only while its stored status is one of from.
// It reports false, without error, when the row holds another status or is missing.
func casModuleStatus(dbc dbctx.Context, id uuid.UUID, from []training.ModuleStatus, to training.ModuleStatus, now time.Time) (bool, error) {
	if dbc.Tx == nil {
		return false, ValidationError("status change needs a transaction")
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	res := dbc.Tx.WithContext(dbc.Ctx).
		Table(moduleTable).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(map[string]any{"status": string(to), "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
