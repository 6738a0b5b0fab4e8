package worker

import (
	"github.com/spec-kit/studyshare-auth/internal/service"
)

// StartAuditWorker registers the audit handlers on the session event dispatcher.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
