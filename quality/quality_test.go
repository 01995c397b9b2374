package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDowner struct {
	interfaceID uint32
	lossPct     uint32
	calls       int
}

func (f *fakeDowner) SetLoss(interfaceID uint32, lossPct uint32) {
	f.interfaceID = interfaceID
	f.lossPct = lossPct
	f.calls++
}

func TestSetQualityForwardsLoss(t *testing.T) {
	d := &fakeDowner{}
	tr := New(d)

	tr.SetQuality(7, Measurement{LossPct: 5, DelayMs: 20, JitterMs: 3})
	assert.Equal(t, uint32(7), d.interfaceID)
	assert.Equal(t, uint32(5), d.lossPct)
	assert.Equal(t, 1, d.calls)

	m, ok := tr.Get(7)
	assert.True(t, ok)
	assert.Equal(t, uint32(20), m.DelayMs)
}

func TestGetUnknownInterface(t *testing.T) {
	tr := New(&fakeDowner{})
	_, ok := tr.Get(99)
	assert.False(t, ok)
}

func TestTolerantWithNoMeasurement(t *testing.T) {
	tr := New(&fakeDowner{})
	assert.True(t, tr.Tolerates(1, ServiceClassVoice))
}

func TestVoiceToleranceIsStricterThanBestEffort(t *testing.T) {
	tr := New(&fakeDowner{})
	tr.SetQuality(1, Measurement{LossPct: 5, DelayMs: 100, JitterMs: 10})

	assert.True(t, tr.Tolerates(1, ServiceClassBestEffort))
	assert.False(t, tr.Tolerates(1, ServiceClassVoice))
}

func TestServiceClassForDSCP(t *testing.T) {
	assert.Equal(t, ServiceClassVoice, ServiceClassForDSCP(0x2E)) // EF
	assert.Equal(t, ServiceClassVoice, ServiceClassForDSCP(0x30)) // CS6
	assert.Equal(t, ServiceClassVideo, ServiceClassForDSCP(0x22)) // AF41
	assert.Equal(t, ServiceClassBestEffort, ServiceClassForDSCP(0x00))
	assert.Equal(t, ServiceClassBestEffort, ServiceClassForDSCP(0x0A)) // AF11, not classified
}

func TestAdministrativeDownTriggersAt100(t *testing.T) {
	d := &fakeDowner{}
	tr := New(d)
	tr.SetQuality(3, Measurement{LossPct: 100})
	assert.Equal(t, uint32(100), d.lossPct)
}
