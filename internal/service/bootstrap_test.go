package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

func TestNewFromConfig(t *testing.T) {
	profiles := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(profiles, []byte(`
profiles:
  - name: winter
    basePrevalence: 0.12
`), 0644))

	rt, err := NewFromConfig(context.Background(), Settings{
		Calibration: domain.CalibrationConfig{ProfilesFile: profiles, DefaultProfile: "winter"},
		Cache:       domain.CacheConfig{MaxItems: 10, DefaultTTL: time.Minute},
	}, newTestLogger())
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, []string{"default", "winter"}, rt.Service.Registry().Names())

	result, err := rt.Service.Assess(context.Background(), &AssessmentRequest{
		ReportText: "Febrile with productive cough",
		ImageRef:   "xray-17.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "winter", result.Profile)
	assert.Equal(t, []string{"cough", "fever"}, result.Symptoms)
	assert.Equal(t, domain.NeutralImaging(), result.Imaging, "no remote classifier configured")
	assert.Equal(t, domain.NEGATIVE_WITH_SYMPTOMS, result.Risk.Case)
}

func TestNewFromConfig_Errors(t *testing.T) {
	_, err := NewFromConfig(context.Background(), Settings{
		Calibration: domain.CalibrationConfig{DefaultProfile: "missing"},
		Cache:       domain.CacheConfig{MaxItems: 10, DefaultTTL: time.Minute},
	}, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)

	_, err = NewFromConfig(context.Background(), Settings{
		Cache: domain.CacheConfig{MaxItems: 0, DefaultTTL: time.Minute},
	}, newTestLogger())
	assert.Error(t, err)
}
