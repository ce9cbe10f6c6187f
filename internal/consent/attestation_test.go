package consent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

var attestor = NewAttestor("test-signing-key", "test-issuer")
var principal = domain.PrincipalID("patient-1042")

func Test_IssueAndVerify(t *testing.T) {
	token, err := attestor.Issue(principal, PurposeMetrics, true, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	granted, err := attestor.Verify(token, principal, PurposeMetrics)
	require.NoError(t, err)
	assert.True(t, granted)
}

func Test_Verify_DeniedAttestation(t *testing.T) {
	token, err := attestor.Issue(principal, PurposeMetrics, false, time.Hour)
	require.NoError(t, err)

	granted, err := attestor.Verify(token, principal, PurposeMetrics)
	require.NoError(t, err, "a denial is a valid attestation")
	assert.False(t, granted)
}

func Test_Verify_InvalidToken(t *testing.T) {
	_, err := attestor.Verify("not-a-token", principal, PurposeMetrics)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation"))
}

func Test_Verify_ExpiredToken(t *testing.T) {
	token, err := attestor.Issue(principal, PurposeMetrics, true, -time.Hour)
	require.NoError(t, err)

	_, err = attestor.Verify(token, principal, PurposeMetrics)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "attestation has expired"))
}

func Test_Verify_WrongKey(t *testing.T) {
	other := NewAttestor("other-signing-key", "test-issuer")
	token, err := other.Issue(principal, PurposeMetrics, true, time.Hour)
	require.NoError(t, err)

	_, err = attestor.Verify(token, principal, PurposeMetrics)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation"))
}

func Test_Verify_SubjectMismatch(t *testing.T) {
	token, err := attestor.Issue("patient-9999", PurposeMetrics, true, time.Hour)
	require.NoError(t, err)

	_, err = attestor.Verify(token, principal, PurposeMetrics)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "attestation subject mismatch"))
}

func Test_Verify_PurposeMismatch(t *testing.T) {
	token, err := attestor.Issue(principal, PurposeResearch, true, time.Hour)
	require.NoError(t, err)

	_, err = attestor.Verify(token, principal, PurposeMetrics)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "attestation purpose mismatch"))
}
