package configadmin

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/corectk/pluginfw/dispatch"
	"github.com/corectk/pluginfw/props"
	"github.com/corectk/pluginfw/queue"
	"github.com/corectk/pluginfw/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingManagedService struct {
	mu    sync.Mutex
	calls []*props.Map
	done  chan struct{}
}

func newRecordingManagedService() *recordingManagedService {
	return &recordingManagedService{done: make(chan struct{}, 16)}
}

func (m *recordingManagedService) Updated(properties *props.Map) error {
	m.mu.Lock()
	m.calls = append(m.calls, properties)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingManagedService) waitForCall(t *testing.T) *props.Map {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ManagedService.Updated")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func newTestAdmin(t *testing.T) (*Admin, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.Config{})
	admin, err := New(reg, NopStore{}, WithExecutor(dispatch.New(dispatch.WithIdleTimeout(50*time.Millisecond))))
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	return admin, reg
}

func TestGetConfigurationCreatesRecordAndUpdateDelivers(t *testing.T) {
	admin, reg := newTestAdmin(t)
	ms := newRecordingManagedService()

	p, err := props.New(props.E("service.pid", props.String("com.example.thing")))
	require.NoError(t, err)
	_, err = reg.Register("com.example.plugin", []string{managedServiceClass}, ms, p)
	require.NoError(t, err)

	got := ms.waitForCall(t)
	assert.Equal(t, 0, got.Len())

	facade := admin.Facade("com.example.caller")
	cfg, err := facade.GetConfiguration("com.example.thing")
	require.NoError(t, err)

	update, err := props.New(props.E("timeout", props.Int(30)))
	require.NoError(t, err)
	require.NoError(t, cfg.Update(update))

	got = ms.waitForCall(t)
	v, ok := got.Get("timeout")
	require.True(t, ok)
	n, _ := v.NumericValue()
	assert.Equal(t, float64(30), n)
	pidVal, ok := got.Get("service.pid")
	require.True(t, ok)
	assert.Equal(t, "com.example.thing", pidVal.AsString())
}

func TestDeleteDeliversEmptyProperties(t *testing.T) {
	admin, reg := newTestAdmin(t)
	ms := newRecordingManagedService()

	p, err := props.New(props.E("service.pid", props.String("com.example.thing")))
	require.NoError(t, err)
	_, err = reg.Register("com.example.plugin", []string{managedServiceClass}, ms, p)
	require.NoError(t, err)
	ms.waitForCall(t)

	facade := admin.Facade("com.example.caller")
	cfg, err := facade.GetConfiguration("com.example.thing")
	require.NoError(t, err)

	update, err := props.New(props.E("k", props.String("v")))
	require.NoError(t, err)
	require.NoError(t, cfg.Update(update))
	ms.waitForCall(t)

	require.NoError(t, cfg.Delete())
	got := ms.waitForCall(t)
	assert.Equal(t, 0, got.Len())
}

type upperCasePlugin struct{}

func (upperCasePlugin) ModifyConfiguration(_ registry.Reference, _ string, properties *props.Map) *props.Map {
	v, ok := properties.Get("greeting")
	if !ok {
		return properties
	}
	return properties.With("greeting", props.String(v.AsString()+"!"))
}

func TestConfigurationPluginChainMutatesDelivery(t *testing.T) {
	admin, reg := newTestAdmin(t)

	emptyP, err := props.New()
	require.NoError(t, err)
	_, err = reg.Register("com.example.cmplugin", []string{configurationPluginClass}, upperCasePlugin{}, emptyP)
	require.NoError(t, err)

	ms := newRecordingManagedService()
	p, err := props.New(props.E("service.pid", props.String("com.example.thing")))
	require.NoError(t, err)
	_, err = reg.Register("com.example.plugin", []string{managedServiceClass}, ms, p)
	require.NoError(t, err)
	ms.waitForCall(t)

	facade := admin.Facade("com.example.caller")
	cfg, err := facade.GetConfiguration("com.example.thing")
	require.NoError(t, err)

	update, err := props.New(props.E("greeting", props.String("hello")))
	require.NoError(t, err)
	require.NoError(t, cfg.Update(update))

	got := ms.waitForCall(t)
	v, ok := got.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello!", v.AsString())
}

type recordingFactory struct {
	mu      sync.Mutex
	updates map[string]*props.Map
	deletes map[string]bool
	done    chan struct{}
}

func newRecordingFactory() *recordingFactory {
	return &recordingFactory{
		updates: make(map[string]*props.Map),
		deletes: make(map[string]bool),
		done:    make(chan struct{}, 16),
	}
}

func (f *recordingFactory) Name() string { return "recordingFactory" }

func (f *recordingFactory) UpdatedInstance(pid string, properties *props.Map) error {
	f.mu.Lock()
	f.updates[pid] = properties
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *recordingFactory) Deleted(pid string) {
	f.mu.Lock()
	f.deletes[pid] = true
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *recordingFactory) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for factory callback")
	}
}

func TestFactoryConfigurationDelivery(t *testing.T) {
	admin, reg := newTestAdmin(t)
	factory := newRecordingFactory()

	p, err := props.New(props.E("service.pid", props.String("com.example.worker")))
	require.NoError(t, err)
	_, err = reg.Register("com.example.factoryplugin", []string{managedServiceFactoryClass}, factory, p)
	require.NoError(t, err)

	facade := admin.Facade("com.example.caller")
	instance, err := facade.CreateFactoryConfiguration("com.example.worker")
	require.NoError(t, err)

	update, err := props.New(props.E("k", props.String("v")))
	require.NoError(t, err)
	require.NoError(t, instance.Update(update))
	factory.wait(t)

	factoryPID, ok := instance.FactoryPID()
	require.True(t, ok)
	assert.Equal(t, "com.example.worker", factoryPID)

	require.NoError(t, instance.Delete())
	factory.wait(t)

	factory.mu.Lock()
	defer factory.mu.Unlock()
	assert.True(t, factory.deletes[instance.PID()])
}

type recordingConfigListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingConfigListener) ConfigurationEvent(evt Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func TestConfigurationListenerReceivesEvents(t *testing.T) {
	admin, _ := newTestAdmin(t)
	listener := &recordingConfigListener{}
	admin.AddConfigurationListener(listener)

	facade := admin.Facade("com.example.caller")
	cfg, err := facade.GetConfiguration("com.example.thing")
	require.NoError(t, err)

	update, err := props.New(props.E("k", props.String("v")))
	require.NoError(t, err)
	require.NoError(t, cfg.Update(update))
	require.NoError(t, cfg.Delete())

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.events, 2)
	assert.Equal(t, CMUpdated, listener.events[0].Type)
	assert.Equal(t, CMDeleted, listener.events[1].Type)
}

func TestListConfigurationsFiltersByLDAP(t *testing.T) {
	admin, _ := newTestAdmin(t)
	facade := admin.Facade("com.example.caller")

	cfgA, err := facade.GetConfiguration("com.example.a")
	require.NoError(t, err)
	pa, err := props.New(props.E("tag", props.String("blue")))
	require.NoError(t, err)
	require.NoError(t, cfgA.Update(pa))

	cfgB, err := facade.GetConfiguration("com.example.b")
	require.NoError(t, err)
	pb, err := props.New(props.E("tag", props.String("red")))
	require.NoError(t, err)
	require.NoError(t, cfgB.Update(pb))

	matches, err := facade.ListConfigurations("(tag=blue)")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "com.example.a", matches[0].PID())
}

func TestBindBindsDeclaredOwnerOnRegistration(t *testing.T) {
	admin, reg := newTestAdmin(t)

	facade := admin.Facade("com.example.owner")
	_, err := facade.GetConfigurationWithLocation("com.example.thing", "com.example.owner")
	require.NoError(t, err)

	msA := newRecordingManagedService()
	pA, err := props.New(props.E("service.pid", props.String("com.example.thing")))
	require.NoError(t, err)
	_, err = reg.Register("com.example.owner", []string{managedServiceClass}, msA, pA)
	require.NoError(t, err)
	msA.waitForCall(t)

	admin.mu.RLock()
	rec := admin.records["com.example.thing"]
	admin.mu.RUnlock()
	assert.True(t, rec.bound)
	assert.Equal(t, "com.example.owner", rec.boundPlugin)
}

func TestEventBridgeRepublishesConfigurationEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	bridge, err := queue.NewRedisClient(queue.RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bridge.Close() })

	reg := registry.New(registry.Config{})
	admin, err := New(reg, NopStore{}, WithBridge(bridge))
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, err := bridge.Subscribe(ctx, "org/commontk/service/cm/ConfigurationEvent/CM_UPDATED")
	require.NoError(t, err)

	facade := admin.Facade("com.example.owner")
	cfg, err := facade.GetConfiguration("com.example.thing")
	require.NoError(t, err)
	p, err := props.New(props.E("greeting", props.String("hello")))
	require.NoError(t, err)
	require.NoError(t, cfg.Update(p))

	select {
	case evt := <-events:
		assert.Equal(t, "com.example.thing", evt.PID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridged configuration event")
	}
}
