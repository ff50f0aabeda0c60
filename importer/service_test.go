package importer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f0oster/zbxsync/database"
	"f0oster/zbxsync/diff"
	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/importer"
	"f0oster/zbxsync/reconcile"
	"f0oster/zbxsync/snapshot"
)

type fakeSource struct {
	expanded map[string][]snapshot.SourceRecord
	errs     map[string]error
}

func (f *fakeSource) Expand(_ context.Context, rec snapshot.SourceRecord) ([]snapshot.SourceRecord, error) {
	if err := f.errs[rec.Name]; err != nil {
		return nil, err
	}
	return f.expanded[rec.Name], nil
}

type fakeTarget struct {
	ids     map[string]string
	records map[string]snapshot.TargetRecord

	createErrs map[string]error
	updateErr  error
	deleteErr  error

	resolveCalls int
	deleteCalls  int
	deletedIDs   []string
	created      []string
	updates      []string
}

func (f *fakeTarget) ResolveIDs(_ context.Context, names []string) (map[string]string, error) {
	f.resolveCalls++
	out := map[string]string{}
	for _, name := range names {
		if id, ok := f.ids[name]; ok {
			out[name] = id
		}
	}
	return out, nil
}

func (f *fakeTarget) Delete(_ context.Context, ids []string) (int, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, ids...)
	return len(ids), nil
}

func (f *fakeTarget) Create(_ context.Context, rec snapshot.SourceRecord) (string, error) {
	if err := f.createErrs[rec.Name]; err != nil {
		return "", err
	}
	f.created = append(f.created, rec.Name)
	return "9000", nil
}

func (f *fakeTarget) Record(_ context.Context, name string) (snapshot.TargetRecord, error) {
	rec, ok := f.records[name]
	if !ok {
		return snapshot.TargetRecord{}, errors.New("no such host")
	}
	return rec, nil
}

func (f *fakeTarget) UpdateAttribute(_ context.Context, tgt snapshot.TargetRecord, category diff.Category, value string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, tgt.Name+"/"+string(category)+"="+value)
	return nil
}

type fakeMarker struct {
	written []time.Time
}

func (f *fakeMarker) Write(t time.Time) error {
	f.written = append(f.written, t)
	return nil
}

type fakeHistory struct {
	runs []database.SyncRun
}

func (f *fakeHistory) RecordRun(_ context.Context, run database.SyncRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func derived(name string, attrs diff.Attributes) snapshot.SourceRecord {
	return snapshot.SourceRecord{
		Name:       name,
		ParentName: name,
		Partition:  "zbx-praha",
		Attributes: attrs,
	}
}

func validAttrs(ip string) diff.Attributes {
	return diff.Attributes{
		diff.IPAddress: ip,
		diff.DNSName:   "host.example.net",
		diff.HostGroup: "switches",
		diff.Template:  "Template Net",
		diff.Proxy:     "zbx-praha",
	}
}

func TestApplyEmptyPlanTouchesNothing(t *testing.T) {
	target := &fakeTarget{}
	marker := &fakeMarker{}
	svc := importer.NewService(&fakeSource{}, target, marker)

	res, err := svc.Apply(context.Background(), &reconcile.Plan{}, snapshot.New(nil))
	require.NoError(t, err)

	assert.Zero(t, res.Total())
	assert.Zero(t, target.resolveCalls, "no delete candidates, no resolve call")
	assert.Zero(t, target.deleteCalls)
	assert.Empty(t, marker.written, "marker must not advance on an empty run")
}

func TestApplyDeletesResolvedHosts(t *testing.T) {
	target := &fakeTarget{ids: map[string]string{"old1": "11", "old2": "12"}}
	marker := &fakeMarker{}
	svc := importer.NewService(&fakeSource{}, target, marker)

	plan := &reconcile.Plan{ToDelete: []string{"old1", "old2", "ghost"}}
	res, err := svc.Apply(context.Background(), plan, snapshot.New(nil))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 1, target.deleteCalls)
	assert.ElementsMatch(t, []string{"11", "12"}, target.deletedIDs)
	assert.Len(t, marker.written, 1)
}

func TestApplySkipsDeleteCallWhenNothingResolves(t *testing.T) {
	target := &fakeTarget{}
	svc := importer.NewService(&fakeSource{}, target, &fakeMarker{})

	plan := &reconcile.Plan{ToDelete: []string{"ghost"}}
	res, err := svc.Apply(context.Background(), plan, snapshot.New(nil))
	require.NoError(t, err)

	assert.Zero(t, res.Deleted)
	assert.Equal(t, 1, target.resolveCalls)
	assert.Zero(t, target.deleteCalls, "delete must never be issued with an empty id list")
}

func TestApplyCreatesExpandedHosts(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
	}}
	target := &fakeTarget{}
	marker := &fakeMarker{}
	history := &fakeHistory{}
	svc := importer.NewService(source, target, marker).WithHistory(history)

	plan := &reconcile.Plan{ToCreate: []string{"sw1"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{"sw1"}, target.created)
	assert.Len(t, marker.written, 1)

	require.Len(t, history.runs, 1)
	run := history.runs[0]
	assert.Equal(t, 1, run.Created)
	require.Len(t, run.Changes, 1)
	assert.Equal(t, database.ActionCreate, run.Changes[0].Action)
	assert.Equal(t, "sw1", run.Changes[0].HostName)
}

func TestApplyValidationSkips(t *testing.T) {
	noDNS := validAttrs("10.0.0.1")
	delete(noDNS, diff.DNSName)
	noGroup := validAttrs("10.0.0.2")
	noGroup[diff.HostGroup] = "0"

	mismatched := derived("port-a", validAttrs("10.0.0.3"))
	mismatched.ParentName = "sw3"

	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
		{Name: "sw2", ParentName: "sw2", Partition: "zbx-praha"},
		{Name: "sw3", ParentName: "sw3", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", noDNS)},
		"sw2": {derived("sw2", noGroup)},
		"sw3": {mismatched},
	}}
	target := &fakeTarget{}
	marker := &fakeMarker{}
	svc := importer.NewService(source, target, marker)

	plan := &reconcile.Plan{ToCreate: []string{"sw1", "sw2", "sw3"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Zero(t, res.Created)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, target.created)
	assert.Empty(t, marker.written)
}

func TestApplyMultiInterfaceNameMismatchAllowed(t *testing.T) {
	portA := derived("port-a", validAttrs("10.0.0.1"))
	portA.ParentName = "sw1"
	portA.MultiInterface = true
	portB := derived("port-b", validAttrs("10.0.0.2"))
	portB.ParentName = "sw1"
	portB.MultiInterface = true

	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {portA, portB},
	}}
	target := &fakeTarget{}
	svc := importer.NewService(source, target, &fakeMarker{})

	res, err := svc.Apply(context.Background(), &reconcile.Plan{ToCreate: []string{"sw1"}}, src)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.ElementsMatch(t, []string{"port-a", "port-b"}, target.created)
}

func TestApplyCreateFailureIsolation(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
		{Name: "sw2", ParentName: "sw2", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
		"sw2": {derived("sw2", validAttrs("10.0.0.2"))},
	}}
	target := &fakeTarget{createErrs: map[string]error{"sw1": errors.New("boom")}}
	svc := importer.NewService(source, target, &fakeMarker{})

	plan := &reconcile.Plan{ToCreate: []string{"sw1", "sw2"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"sw2"}, target.created)

	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], errors.ErrApply))
}

func TestApplyExpandFailureIsolation(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
		{Name: "sw2", ParentName: "sw2", Partition: "zbx-praha"},
	})
	source := &fakeSource{
		expanded: map[string][]snapshot.SourceRecord{
			"sw2": {derived("sw2", validAttrs("10.0.0.2"))},
		},
		errs: map[string]error{"sw1": errors.New("malformed ports")},
	}
	target := &fakeTarget{}
	svc := importer.NewService(source, target, &fakeMarker{})

	plan := &reconcile.Plan{ToCreate: []string{"sw1", "sw2"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
}

func TestApplyUpdatesOnlyChangedAttributes(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.99"))},
	}}
	current := validAttrs("10.0.0.1")
	target := &fakeTarget{records: map[string]snapshot.TargetRecord{
		"sw1": {Name: "sw1", HostID: "11", InterfaceID: "21", Attributes: current},
	}}
	history := &fakeHistory{}
	svc := importer.NewService(source, target, &fakeMarker{}).WithHistory(history)

	plan := &reconcile.Plan{ToUpdate: []string{"sw1"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"sw1/ip_addr=10.0.0.99"}, target.updates)

	require.Len(t, history.runs, 1)
	require.Len(t, history.runs[0].Changes, 1)
	change := history.runs[0].Changes[0]
	assert.Equal(t, database.ActionUpdate, change.Action)
	assert.Equal(t, "10.0.0.1", change.OldValue)
	assert.Equal(t, "10.0.0.99", change.NewValue)
}

func TestApplyUpdateIgnoresAttributesAbsentFromTarget(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.99"))},
	}}

	// The target never recorded a template; only the drifted IP may be
	// touched.
	current := validAttrs("10.0.0.1")
	delete(current, diff.Template)
	target := &fakeTarget{records: map[string]snapshot.TargetRecord{
		"sw1": {Name: "sw1", HostID: "11", InterfaceID: "21", Attributes: current},
	}}
	svc := importer.NewService(source, target, &fakeMarker{})

	res, err := svc.Apply(context.Background(), &reconcile.Plan{ToUpdate: []string{"sw1"}}, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"sw1/ip_addr=10.0.0.99"}, target.updates)
}

func TestApplyUpdateRecordFetchFailureReported(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
	}}
	target := &fakeTarget{} // no records: every fetch fails
	svc := importer.NewService(source, target, &fakeMarker{})

	res, err := svc.Apply(context.Background(), &reconcile.Plan{ToUpdate: []string{"sw1"}}, src)
	require.NoError(t, err)

	assert.Zero(t, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], errors.ErrApply))
}

func TestApplyUpdateNoDriftNoCalls(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
	}}
	target := &fakeTarget{records: map[string]snapshot.TargetRecord{
		"sw1": {Name: "sw1", HostID: "11", InterfaceID: "21", Attributes: validAttrs("10.0.0.1")},
	}}
	marker := &fakeMarker{}
	svc := importer.NewService(source, target, marker)

	res, err := svc.Apply(context.Background(), &reconcile.Plan{ToUpdate: []string{"sw1"}}, src)
	require.NoError(t, err)

	assert.Zero(t, res.Updated)
	assert.Empty(t, target.updates)
	assert.Empty(t, marker.written, "a drift-free run must not advance the marker")
}

func TestApplyUpdateFailureDoesNotCount(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.99"))},
	}}
	target := &fakeTarget{
		records: map[string]snapshot.TargetRecord{
			"sw1": {Name: "sw1", HostID: "11", InterfaceID: "21", Attributes: validAttrs("10.0.0.1")},
		},
		updateErr: errors.New("api down"),
	}
	marker := &fakeMarker{}
	svc := importer.NewService(source, target, marker)

	res, err := svc.Apply(context.Background(), &reconcile.Plan{ToUpdate: []string{"sw1"}}, src)
	require.NoError(t, err)

	assert.Zero(t, res.Updated)
	assert.Empty(t, marker.written)
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], errors.ErrApply))
}

func TestApplyDryRunIssuesNothing(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
	}}
	target := &fakeTarget{ids: map[string]string{"old": "11"}}
	marker := &fakeMarker{}
	history := &fakeHistory{}
	svc := importer.NewService(source, target, marker).WithHistory(history).WithDryRun(true)

	plan := &reconcile.Plan{ToCreate: []string{"sw1"}, ToDelete: []string{"old"}}
	res, err := svc.Apply(context.Background(), plan, src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, target.created, "dry run must not create")
	assert.Zero(t, target.deleteCalls, "dry run must not delete")
	assert.Empty(t, marker.written, "dry run must not advance the marker")

	require.Len(t, history.runs, 1)
	assert.True(t, history.runs[0].DryRun)
}

func TestApplyMarkerWrittenWithRunStart(t *testing.T) {
	src := snapshot.New([]snapshot.SourceRecord{
		{Name: "sw1", ParentName: "sw1", Partition: "zbx-praha"},
	})
	source := &fakeSource{expanded: map[string][]snapshot.SourceRecord{
		"sw1": {derived("sw1", validAttrs("10.0.0.1"))},
	}}
	target := &fakeTarget{}
	marker := &fakeMarker{}
	svc := importer.NewService(source, target, marker)

	before := time.Now()
	_, err := svc.Apply(context.Background(), &reconcile.Plan{ToCreate: []string{"sw1"}}, src)
	require.NoError(t, err)

	require.Len(t, marker.written, 1)
	assert.False(t, marker.written[0].Before(before))
	assert.False(t, marker.written[0].After(time.Now()))
}
