package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict, retryable: true},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := Newf(CodeValidation, "quota_limit must be >= %d", -1)
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "quota_limit must be >= -1" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"field": "quota_limit"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("counter timeout")
	wrapped := Wrap(CodeDependency, cause, "count active users")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !IsCode(fmt.Errorf("outer: %w", wrapped), CodeDependency) {
		t.Fatalf("IsCode should see through fmt wrapping")
	}
	if IsCode(cause, CodeDependency) {
		t.Fatalf("untyped errors carry no code")
	}
}

func TestDumpCapturesChainAndPgDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_tenant_quotas_tenant_type", TableName: "tenant_quotas", ColumnName: "quota_type"}
	err := Wrap(CodeConflict, pgErr, "upsert tenant quota")

	d := Dump(err)
	if d.Code != CodeConflict || !d.Retryable {
		t.Fatalf("unexpected code metadata: %+v", d)
	}
	if d.PGCode != "23505" || d.PGConstraint != "ux_tenant_quotas_tenant_type" || d.PGTable != "tenant_quotas" {
		t.Fatalf("pg details missing: %+v", d)
	}
	if d.PGColumn != "quota_type" {
		t.Fatalf("expected pg column quota_type, got %q", d.PGColumn)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil dump should be empty")
	}
}

func TestDumpCapturesLibPqColumn(t *testing.T) {
	pqErr := &pq.Error{Code: "23502", Table: "tenant_quotas", Column: "quota_limit", Message: "null value"}
	d := Dump(Wrap(CodeValidation, pqErr, "insert tenant quota"))
	if d.PGCode != "23502" || d.PGTable != "tenant_quotas" || d.PGColumn != "quota_limit" {
		t.Fatalf("pq details missing: %+v", d)
	}
	if d.PGMessage != "null value" {
		t.Fatalf("expected pq message, got %q", d.PGMessage)
	}
}
