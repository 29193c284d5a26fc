package boardAuth

import "context"

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventReissueSuccess   = "reissue_success"
	auditEventReissueFailure   = "reissue_failure"
	auditEventRefreshMismatch  = "refresh_mismatch"
	auditEventRevokedTokenUsed = "revoked_token_used"
	auditEventLogout           = "logout"
	auditEventSignupSuccess    = "signup_success"
	auditEventSignupDuplicate  = "signup_duplicate"
	auditEventCacheUnavailable = "cache_unavailable"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	severity AuditSeverity,
	success bool,
	memberID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		Severity:  severity,
		MemberID:  memberID,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = string(Classify(err))
	}

	e.audit.Emit(ctx, event)
}

func reasonMeta(reason string) func() map[string]string {
	if reason == "" {
		return nil
	}
	return func() map[string]string {
		return map[string]string{"reason": reason}
	}
}
