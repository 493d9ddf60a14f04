package regdns

// Mode holds the flags that steer Reconcile.
type Mode struct {
	// Delete removes the first record matching the desired (type, name).
	Delete bool
	// ForceAdd appends the desired record even when a record with the same (type, name) exists.
	ForceAdd bool
	// DryRun is carried into the Plan; the caller decides not to submit it.
	DryRun bool
}

// Action describes what Reconcile decided to do with the desired record.
type Action int

const (
	Unchanged Action = iota
	Added
	Updated
	Deleted
	NotFound // delete was requested but no record matched
)

func (a Action) String() string {
	switch a {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case NotFound:
		return "not found"
	}
	return "unknown"
}

// Plan is the outcome of Reconcile.
type Plan struct {
	// Records is the full record set to submit. It is only worth submitting when Changed is true.
	Records []Record
	Changed bool
	Action  Action
	DryRun  bool
	// Old is the first record that matched the desired (type, name), if any.
	Old *Record
}

// Reconcile computes the record set that results from applying desired to current.
//
// Only the first record whose (type, name) matches desired is considered.
// Later records with the same key are passed through untouched in every mode,
// so record sets holding several TXT values under one name are only partly supported.
//
// On the first match:
//   - in delete mode the record is dropped;
//   - if its content equals the desired content nothing changes;
//   - in force-add mode it is kept and desired is appended as if nothing matched;
//   - otherwise its content is replaced and its TTL and priority are kept.
//
// When nothing matched (or force-add applied) desired is appended with its own TTL.
// Non-matching records keep their order and values. current is never modified.
func Reconcile(current []Record, desired Record, mode Mode) Plan {
	p := Plan{
		Records: make([]Record, 0, len(current)+1),
		DryRun:  mode.DryRun,
	}
	var matched, forced bool
	for _, rec := range current {
		if matched || !rec.matches(desired) {
			p.Records = append(p.Records, rec.clone())
			continue
		}
		matched = true
		old := rec.clone()
		p.Old = &old

		switch {
		case mode.Delete:
			p.Action, p.Changed = Deleted, true
		case rec.Content == desired.Content:
			p.Records = append(p.Records, rec.clone())
			p.Action = Unchanged
		case mode.ForceAdd:
			p.Records = append(p.Records, rec.clone())
			forced = true
		default:
			updated := rec.clone()
			updated.Content = desired.Content
			p.Records = append(p.Records, updated)
			p.Action, p.Changed = Updated, true
		}
	}

	switch {
	case mode.Delete && !matched:
		p.Action = NotFound
	case !mode.Delete && (!matched || forced):
		p.Records = append(p.Records, desired.clone())
		p.Action, p.Changed = Added, true
	}
	return p
}
