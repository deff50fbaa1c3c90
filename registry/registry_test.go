package registry

import (
	"testing"

	"github.com/corectk/pluginfw/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	events []ServiceEvent
}

func (l *recordingListener) ServiceChanged(evt ServiceEvent) {
	l.events = append(l.events, evt)
}

type panicListener struct{}

func (panicListener) ServiceChanged(ServiceEvent) { panic("boom") }

type frameworkSink struct {
	events []FrameworkEvent
}

func (s *frameworkSink) FrameworkEvent(evt FrameworkEvent) {
	s.events = append(s.events, evt)
}

func TestRegisterRejectsEmptyClasses(t *testing.T) {
	reg := New(Config{})
	_, err := reg.Register("demo", nil, "svc", nil)
	assert.Error(t, err)
}

func TestRegisterAndGetReference(t *testing.T) {
	reg := New(Config{})
	ref, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", nil)
	require.NoError(t, err)

	got, ok := reg.GetReference("com.example.Greeter")
	require.True(t, ok)
	assert.Equal(t, ref.ServiceID(), got.ServiceID())

	svc, err := reg.GetService(got)
	require.NoError(t, err)
	assert.Equal(t, "hello", svc)
}

func TestGetReferenceOrdersByRankingThenID(t *testing.T) {
	reg := New(Config{})

	low, _ := props.New(props.E("service.ranking", props.Int(0)))
	high, _ := props.New(props.E("service.ranking", props.Int(10)))

	refLow, err := reg.Register("demo", []string{"com.example.Greeter"}, "low", low)
	require.NoError(t, err)
	refHigh, err := reg.Register("demo", []string{"com.example.Greeter"}, "high", high)
	require.NoError(t, err)

	top, ok := reg.GetReference("com.example.Greeter")
	require.True(t, ok)
	assert.Equal(t, refHigh.ServiceID(), top.ServiceID())

	all, err := reg.GetReferences("com.example.Greeter", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, refHigh.ServiceID(), all[0].ServiceID())
	assert.Equal(t, refLow.ServiceID(), all[1].ServiceID())
}

func TestUnregisterRemovesServiceAndBlocksGetService(t *testing.T) {
	reg := New(Config{})
	ref, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, reg.Unregister(ref))

	_, ok := reg.GetReference("com.example.Greeter")
	assert.False(t, ok)

	_, err = reg.GetService(ref)
	assert.Error(t, err)

	assert.Error(t, reg.Unregister(ref))
}

type unregisteringProbe struct {
	reg          *Registry
	ref          Reference
	class        string
	sawReference bool
	serviceErr   error
}

func (p *unregisteringProbe) ServiceChanged(evt ServiceEvent) {
	if evt.Kind != Unregistering {
		return
	}
	if _, ok := p.reg.GetReference(p.class); ok {
		p.sawReference = true
	}
	if refs, _ := p.reg.GetReferences(p.class, nil); len(refs) != 0 {
		p.sawReference = true
	}
	_, p.serviceErr = p.reg.GetService(p.ref)
}

func TestUnregisterHidesReferenceDuringEventButKeepsServiceAvailable(t *testing.T) {
	reg := New(Config{})
	ref, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", nil)
	require.NoError(t, err)

	probe := &unregisteringProbe{reg: reg, ref: ref, class: "com.example.Greeter"}
	require.NoError(t, reg.AddServiceListener(probe, ""))

	require.NoError(t, reg.Unregister(ref))

	assert.False(t, probe.sawReference, "GetReference/GetReferences must not return a registration mid-Unregistering dispatch")
	assert.NoError(t, probe.serviceErr, "GetService must still resolve while Unregistering listeners run")
}

func TestListenerReceivesRegisteredAndUnregistering(t *testing.T) {
	reg := New(Config{})
	listener := &recordingListener{}
	require.NoError(t, reg.AddServiceListener(listener, "(objectclass=com.example.Greeter)"))

	props, _ := props.New(props.E("objectclass", props.String("com.example.Greeter")))
	ref, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", props)
	require.NoError(t, err)
	require.NoError(t, reg.Unregister(ref))

	require.Len(t, listener.events, 2)
	assert.Equal(t, Registered, listener.events[0].Kind)
	assert.Equal(t, Unregistering, listener.events[1].Kind)
}

func TestListenerFilterExcludesNonMatchingRegistrations(t *testing.T) {
	reg := New(Config{})
	listener := &recordingListener{}
	require.NoError(t, reg.AddServiceListener(listener, "(objectclass=com.example.Greeter)"))

	_, err := reg.Register("demo", []string{"com.example.Other"}, "hello", nil)
	require.NoError(t, err)

	assert.Empty(t, listener.events)
}

func TestSetPropertiesDeliversModifiedEndmatch(t *testing.T) {
	reg := New(Config{})
	listener := &recordingListener{}
	require.NoError(t, reg.AddServiceListener(listener, "(tier=gold)"))

	gold, _ := props.New(props.E("tier", props.String("gold")))
	ref, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", gold)
	require.NoError(t, err)
	require.Len(t, listener.events, 1)
	assert.Equal(t, Registered, listener.events[0].Kind)

	silver, _ := props.New(props.E("tier", props.String("silver")))
	require.NoError(t, reg.SetProperties(ref, silver))

	require.Len(t, listener.events, 2)
	assert.Equal(t, ModifiedEndmatch, listener.events[1].Kind)
}

func TestPanickingListenerIsolatedByFrameworkListener(t *testing.T) {
	reg := New(Config{})
	sink := &frameworkSink{}
	reg.SetFrameworkListener(sink)
	require.NoError(t, reg.AddServiceListener(panicListener{}, ""))

	_, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", nil)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, PluginError, sink.events[0].Kind)
}

func TestRemoveServiceListenerStopsDelivery(t *testing.T) {
	reg := New(Config{})
	listener := &recordingListener{}
	require.NoError(t, reg.AddServiceListener(listener, ""))
	reg.RemoveServiceListener(listener)

	_, err := reg.Register("demo", []string{"com.example.Greeter"}, "hello", nil)
	require.NoError(t, err)

	assert.Empty(t, listener.events)
}

func TestUnregisterAllForPlugin(t *testing.T) {
	reg := New(Config{})
	ref1, err := reg.Register("demo", []string{"com.example.A"}, "a", nil)
	require.NoError(t, err)
	_, err = reg.Register("demo", []string{"com.example.B"}, "b", nil)
	require.NoError(t, err)
	_, err = reg.Register("other", []string{"com.example.C"}, "c", nil)
	require.NoError(t, err)

	reg.UnregisterAllForPlugin("demo")

	_, err = reg.GetService(ref1)
	assert.Error(t, err)
	_, ok := reg.GetReference("com.example.A")
	assert.False(t, ok)
	_, ok = reg.GetReference("com.example.B")
	assert.False(t, ok)
	_, ok = reg.GetReference("com.example.C")
	assert.True(t, ok)
}
