// Package importer applies a reconciliation plan against the target system.
// Deletes run first so renamed equipment never collides with its old host,
// then creates, then per-attribute updates. Every entity fails on its own;
// one bad host never aborts the run.
package importer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"f0oster/zbxsync/database"
	"f0oster/zbxsync/diff"
	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/reconcile"
	"f0oster/zbxsync/snapshot"
)

// Source expands an equipment record into its per-interface host records.
type Source interface {
	Expand(ctx context.Context, rec snapshot.SourceRecord) ([]snapshot.SourceRecord, error)
}

// Target is the set of mutations the orchestrator drives against the
// monitoring system.
type Target interface {
	ResolveIDs(ctx context.Context, names []string) (map[string]string, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Create(ctx context.Context, rec snapshot.SourceRecord) (string, error)
	Record(ctx context.Context, name string) (snapshot.TargetRecord, error)
	UpdateAttribute(ctx context.Context, tgt snapshot.TargetRecord, category diff.Category, value string) error
}

// Marker persists the high-water mark consulted by the staleness filter.
type Marker interface {
	Write(t time.Time) error
}

// History records finished runs. Implemented by database.Recorder.
type History interface {
	RecordRun(ctx context.Context, run database.SyncRun) error
}

// Result summarizes one apply pass.
type Result struct {
	RunID   uuid.UUID
	Created int
	Deleted int
	Updated int
	Skipped int
	Elapsed time.Duration

	// Errors collects the per-entity apply failures. They never abort the
	// run; callers inspect them for alerting.
	Errors []error
}

// Total counts the operations that actually changed the target.
func (r *Result) Total() int {
	return r.Created + r.Deleted + r.Updated
}

type Service struct {
	source  Source
	target  Target
	marker  Marker
	history History
	dryRun  bool
	now     func() time.Time
}

func NewService(source Source, target Target, marker Marker) *Service {
	return &Service{source: source, target: target, marker: marker, now: time.Now}
}

// WithHistory attaches the run-history store. Without it runs are not
// recorded.
func (s *Service) WithHistory(h History) *Service {
	s.history = h
	return s
}

// WithDryRun makes Apply log every operation without issuing it. The
// marker is never advanced in dry-run mode.
func (s *Service) WithDryRun(on bool) *Service {
	s.dryRun = on
	return s
}

// Apply executes the plan. The marker is advanced to the run start time
// only when at least one operation was applied, so an empty run never
// masks source changes that raced the snapshot.
func (s *Service) Apply(ctx context.Context, plan *reconcile.Plan, src *snapshot.Snapshot) (*Result, error) {
	started := s.now()
	res := &Result{RunID: uuid.New()}
	var changes []database.HostChange

	res.Deleted = s.applyDeletes(ctx, plan, res, &changes)
	s.applyCreates(ctx, plan, src, res, &changes)
	s.applyUpdates(ctx, plan, src, res, &changes)
	res.Elapsed = s.now().Sub(started)

	log := logging.Default()
	if res.Total() > 0 && !s.dryRun {
		if err := s.marker.Write(started); err != nil {
			log.Warn().Err(err).Msg("writing sync marker failed, next run will reprocess")
		}
	} else if res.Total() == 0 {
		log.Info().Msg("no changes, marker left untouched")
	}

	s.recordRun(ctx, started, res, changes)

	log.Info().
		Int("created", res.Created).
		Int("deleted", res.Deleted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Dur("elapsed", res.Elapsed).
		Bool("dry_run", s.dryRun).
		Msg("apply finished")
	return res, nil
}

// applyDeletes removes every planned host in one call. A resolve or delete
// failure leaves the hosts in place for the next run.
func (s *Service) applyDeletes(ctx context.Context, plan *reconcile.Plan, res *Result, changes *[]database.HostChange) int {
	log := logging.Default()
	if len(plan.ToDelete) == 0 {
		return 0
	}

	ids, err := s.target.ResolveIDs(ctx, plan.ToDelete)
	if err != nil {
		log.Error().Err(err).Msg("resolving hosts to delete failed, delete phase skipped")
		res.Errors = append(res.Errors, errors.NewApplyError("delete", strings.Join(plan.ToDelete, ","), err))
		return 0
	}

	var ordered []string
	var names []string
	for _, name := range plan.ToDelete {
		id, ok := ids[name]
		if !ok {
			log.Debug().Str("host", name).Msg("host already absent from target")
			continue
		}
		ordered = append(ordered, id)
		names = append(names, name)
	}
	if len(ordered) == 0 {
		return 0
	}

	log.Info().Int("hosts", len(ordered)).Msg("deleting hosts absent from source")
	deleted := len(ordered)
	if !s.dryRun {
		deleted, err = s.target.Delete(ctx, ordered)
		if err != nil {
			log.Error().Err(err).Msg("deleting hosts failed")
			res.Errors = append(res.Errors, errors.NewApplyError("delete", strings.Join(names, ","), err))
			return 0
		}
	}
	for _, name := range names {
		s.addChange(changes, database.HostChange{
			HostName: name,
			Action:   database.ActionDelete,
		})
	}
	return deleted
}

func (s *Service) applyCreates(ctx context.Context, plan *reconcile.Plan, src *snapshot.Snapshot, res *Result, changes *[]database.HostChange) {
	log := logging.Default()
	seen := map[string]bool{}

	for _, name := range plan.ToCreate {
		rec, ok := src.Record(name)
		if !ok {
			log.Debug().Str("host", name).Msg("planned create no longer in snapshot")
			continue
		}
		expanded, err := s.source.Expand(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Str("equipment", name).Msg("expanding equipment failed, create skipped")
			res.Skipped++
			continue
		}
		for _, derived := range expanded {
			if seen[derived.Name] {
				continue
			}
			seen[derived.Name] = true

			if reason := createSkipReason(derived); reason != "" {
				log.Warn().Str("host", derived.Name).Str("reason", reason).Msg("create skipped")
				res.Skipped++
				continue
			}

			log.Info().Str("host", derived.Name).Str("proxy", derived.Partition).Msg("creating host")
			if !s.dryRun {
				if _, err := s.target.Create(ctx, derived); err != nil {
					log.Error().Err(err).Str("host", derived.Name).Msg("creating host failed")
					res.Errors = append(res.Errors, errors.NewApplyError("create", derived.Name, err))
					res.Skipped++
					continue
				}
			}
			res.Created++
			s.addChange(changes, database.HostChange{
				HostName: derived.Name,
				Action:   database.ActionCreate,
				NewValue: derived.Attributes[diff.IPAddress],
			})
		}
	}
}

func (s *Service) applyUpdates(ctx context.Context, plan *reconcile.Plan, src *snapshot.Snapshot, res *Result, changes *[]database.HostChange) {
	log := logging.Default()

	for _, name := range plan.ToUpdate {
		rec, ok := src.Record(name)
		if !ok {
			log.Debug().Str("host", name).Msg("planned update no longer in snapshot")
			continue
		}
		expanded, err := s.source.Expand(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Str("equipment", name).Msg("expanding equipment failed, update skipped")
			res.Skipped++
			continue
		}
		for _, derived := range expanded {
			if s.updateOne(ctx, derived, res, changes) {
				res.Updated++
			}
		}
	}
}

// updateOne diffs one derived record against its target host and issues one
// update call per drifted category. Reports whether any call landed.
func (s *Service) updateOne(ctx context.Context, derived snapshot.SourceRecord, res *Result, changes *[]database.HostChange) bool {
	log := logging.Default()

	tgt, err := s.target.Record(ctx, derived.Name)
	if err != nil {
		log.Warn().Err(err).Str("host", derived.Name).Msg("fetching target host failed, update skipped")
		res.Errors = append(res.Errors, errors.NewApplyError("update", derived.Name, err))
		return false
	}

	result := diff.Compare(derived.Attributes, tgt.Attributes)
	if !result.HasChanges() {
		return false
	}

	// Only attributes present on both sides with differing values trigger
	// a call; attributes absent from the target record are left alone.
	applied := false
	for _, category := range result.Changed {
		if category == diff.SubGroup {
			continue
		}
		value := derived.Attributes[category]
		log.Info().
			Str("host", derived.Name).
			Str("attribute", string(category)).
			Str("from", tgt.Attributes[category]).
			Str("to", value).
			Msg("updating host attribute")
		if !s.dryRun {
			if err := s.target.UpdateAttribute(ctx, tgt, category, value); err != nil {
				log.Error().Err(err).
					Str("host", derived.Name).
					Str("attribute", string(category)).
					Msg("updating attribute failed")
				res.Errors = append(res.Errors, errors.NewApplyError("update", derived.Name, err))
				continue
			}
		}
		applied = true
		s.addChange(changes, database.HostChange{
			HostName: derived.Name,
			Action:   database.ActionUpdate,
			Category: string(category),
			OldValue: tgt.Attributes[category],
			NewValue: value,
		})
	}
	return applied
}

// createSkipReason validates a derived record against the minimum a host
// needs. GLPI stores unresolved dropdowns as "0".
func createSkipReason(rec snapshot.SourceRecord) string {
	if rec.Attributes[diff.DNSName] == "" {
		return "missing dns name"
	}
	if unresolved(rec.Attributes[diff.HostGroup]) {
		return "unresolved host group"
	}
	if unresolved(rec.Attributes[diff.Template]) {
		return "unresolved template"
	}
	if !rec.MultiInterface && rec.Name != rec.ParentName {
		return "interface name differs from equipment name"
	}
	return ""
}

func unresolved(v string) bool {
	return v == "" || v == "0"
}

func (s *Service) addChange(changes *[]database.HostChange, ch database.HostChange) {
	ch.ChangeID = uuid.New()
	ch.At = s.now()
	*changes = append(*changes, ch)
}

func (s *Service) recordRun(ctx context.Context, started time.Time, res *Result, changes []database.HostChange) {
	if s.history == nil {
		return
	}
	run := database.SyncRun{
		RunID:      res.RunID,
		StartedAt:  started,
		FinishedAt: s.now(),
		Created:    res.Created,
		Deleted:    res.Deleted,
		Updated:    res.Updated,
		Skipped:    res.Skipped,
		DryRun:     s.dryRun,
		Changes:    changes,
	}
	if err := s.history.RecordRun(ctx, run); err != nil {
		logging.Default().Warn().Err(err).Msg("recording run history failed")
	}
}
