package audit

import (
	"context"

	"github.com/manyalawy/nawy/pkg/log"
)

// Audit actions for apartment-service.
const (
	ActionCreateProject   = "project.create"
	ActionUpdateProject   = "project.update"
	ActionCreateApartment = "apartment.create"
	ActionUpdateApartment = "apartment.update"
	ActionDeleteApartment = "apartment.delete"
	ActionAddImage        = "apartment.image.add"
	ActionReindex         = "search.reindex"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, userID, targetID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
