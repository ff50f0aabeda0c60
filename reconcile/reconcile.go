package reconcile

import (
	"context"
	"strings"

	"f0oster/zbxsync/logging"
)

// Build runs the full planning pipeline: partition the two snapshots,
// resolve cross-partition moves, filter stale update candidates and collapse
// composite delete names. Move resolution must run after every partition has
// been processed; a move is only visible in aggregate.
//
// The partition walk covers the union of the snapshot's partitions and the
// configured proxy map: a partition holding only target hosts still has to
// contribute its delete candidates, or hosts moved out of it would be
// recreated instead of updated.
func Build(ctx context.Context, in Inputs) (*Plan, error) {
	create := nameSet{}
	del := nameSet{}
	shared := nameSet{}

	plan := &Plan{}

	partitions := nameSet{}
	for _, partition := range in.Source.Partitions() {
		partitions.add(partition)
	}
	for partition := range in.ProxyIDs {
		partitions.add(partition)
	}

	for _, partition := range partitions.sorted() {
		sourceNames := in.Source.PartitionNames(partition)

		proxyID, ok := in.ProxyIDs[partition]
		if !ok {
			logging.Default().Error().
				Str("partition", partition).
				Int("hosts", len(sourceNames)).
				Msg("partition is unknown to the target system")
			plan.PartitionErrors = append(plan.PartitionErrors, PartitionError{
				Partition: partition,
				Names:     append([]string(nil), sourceNames...),
			})
			continue
		}

		targetNames, err := in.Members(ctx, proxyID)
		if err != nil {
			logging.Default().Error().
				Err(err).
				Str("partition", partition).
				Msg("listing partition members failed, partition skipped")
			plan.PartitionErrors = append(plan.PartitionErrors, PartitionError{
				Partition: partition,
				Names:     append([]string(nil), sourceNames...),
			})
			continue
		}

		source := nameSet{}
		for _, name := range sourceNames {
			source.add(name)
		}
		for _, name := range targetNames {
			if source.has(name) {
				shared.add(name)
			} else {
				del.add(name)
			}
		}
		target := nameSet{}
		for _, name := range targetNames {
			target.add(name)
		}
		for _, name := range sourceNames {
			if !target.has(name) {
				create.add(name)
			}
		}
	}

	moved := resolveMoves(create, del)
	update := filterStale(in, shared)
	for _, name := range moved {
		update.add(name)
	}
	collapseComposites(ctx, in, del)

	plan.ToCreate = create.sorted()
	plan.ToDelete = del.sorted()
	plan.ToUpdate = update.sorted()
	plan.Moved = moved
	return plan, nil
}

// resolveMoves reclassifies names present in both the create and delete
// candidate sets: the host did not disappear, it changed partitions and must
// be updated in place instead of destroyed and recreated.
func resolveMoves(create, del nameSet) []string {
	moved := nameSet{}
	for name := range create {
		if del.has(name) {
			moved.add(name)
		}
	}
	for name := range moved {
		create.remove(name)
		del.remove(name)
		logging.Default().Info().Str("host", name).Msg("host moved between proxies, reclassified as update")
	}
	return moved.sorted()
}

// filterStale keeps only update candidates whose source record changed after
// the last successful sync. A zero marker keeps everything.
func filterStale(in Inputs, shared nameSet) nameSet {
	update := nameSet{}
	for name := range shared {
		rec, ok := in.Source.Record(name)
		if !ok {
			continue
		}
		if rec.LastModified.After(in.Marker) {
			update.add(name)
		}
	}
	return update
}

// collapseComposites re-expands composite delete candidates against the
// current source inventory. A composite name is never deleted wholesale
// while any of its sub-parts still exists; the sub-parts that are genuinely
// gone become individual delete candidates.
func collapseComposites(ctx context.Context, in Inputs, del nameSet) {
	for _, name := range del.sorted() {
		if !strings.Contains(name, CompositeSeparator) {
			continue
		}

		parts := strings.Split(name, CompositeSeparator)
		parent, ok := in.Source.Record(parts[0])
		if !ok {
			// The parent equipment left the source entirely: the composite
			// host goes away wholesale.
			continue
		}

		del.remove(name)

		derived, err := in.Expand(ctx, parent)
		if err != nil {
			logging.Default().Warn().
				Err(err).
				Str("host", name).
				Msg("composite re-expansion failed, skipping its deletion this run")
			continue
		}

		live := nameSet{}
		for _, rec := range derived {
			live.add(rec.Name)
		}
		for _, sub := range parts {
			if live.has(sub) {
				del.remove(sub)
			} else {
				del.add(sub)
			}
		}
		// Any currently live derived name must survive, whatever set it
		// arrived through.
		for rec := range live {
			del.remove(rec)
		}
	}
}
