// internal/audit/audit.go
package audit

import (
	"sort"
	"strconv"
	"strings"

	cfg "github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/header"
	"github.com/tamzrod/reader-provisioner/internal/record"
)

// Run checks parsed header generations for consistency.
// master may be nil; master checks are skipped then.
func Run(files []File, master *cfg.Config) Report {
	var r Report
	r.Files = len(files)

	// ------------------------------------------------------------
	// PER-FILE CHECKS (every generation)
	// ------------------------------------------------------------

	for _, f := range files {
		checkFields(&r, f)
		checkBanner(&r, f)
	}

	// ------------------------------------------------------------
	// HISTORY CHECKS (generations of one artifact)
	// ------------------------------------------------------------

	byArtifact := make(map[string][]File)
	for _, f := range files {
		byArtifact[f.Artifact] = append(byArtifact[f.Artifact], f)
	}
	for _, gens := range byArtifact {
		checkDrift(&r, gens)
	}

	// ------------------------------------------------------------
	// CROSS-FILE CHECKS (latest generation of each artifact)
	// ------------------------------------------------------------

	latest := latestGenerations(byArtifact)
	checkSlots(&r, latest)
	checkShared(&r, latest)

	// ------------------------------------------------------------
	// MASTER CHECKS
	// ------------------------------------------------------------

	if master != nil {
		for _, f := range latest {
			checkAgainstMaster(&r, f, master)
		}
		r.Findings = append(r.Findings, CheckMaster(master).Findings...)
	}

	r.sort()
	return r
}

// CheckMaster reports inconsistencies inside the master reader table itself.
// Duplicate indices are rejected by config.Validate and are not repeated here.
func CheckMaster(master *cfg.Config) Report {
	var r Report
	if master == nil {
		return r
	}

	ids := master.Identities()
	sharedGroups(&r, ids, func(record.Identity) string { return "" })

	if _, found := master.IdentityFor(master.MainReaderIndex()); !found {
		r.add(KindMainIndexUnassigned, master.MainReaderIndex(), "",
			"main header index has no master reader entry; firmware falls back to %s/%s",
			record.DefaultReaderID, record.DefaultPortal)
	}

	r.sort()
	return r
}

// ---- checks ----

func checkFields(r *Report, f File) {
	missing := f.Doc.Missing()
	if len(missing) == 0 {
		return
	}
	r.add(KindMissingField, f.Doc.Record.Index, f.Path,
		"missing %s", strings.Join(missing, ", "))
}

func checkBanner(r *Report, f File) {
	b := f.Doc.Banner
	rec := f.Doc.Record

	var diffs []string
	if b.HasIndex && f.Doc.Has(record.FieldIndex) && b.Index != rec.Index {
		diffs = append(diffs, "index")
	}
	if b.HasReaderID && f.Doc.Has(record.FieldReaderID) && b.ReaderID != rec.ReaderID {
		diffs = append(diffs, "reader ID")
	}
	if b.HasPortal && f.Doc.Has(record.FieldPortal) && b.Portal != rec.Portal {
		diffs = append(diffs, "portal")
	}
	if len(diffs) == 0 {
		return
	}
	r.add(KindBannerMismatch, rec.Index, f.Path,
		"banner %s differs from declarations (banner %d:%s/%s, declared %s)",
		strings.Join(diffs, ", "), b.Index, b.ReaderID, b.Portal, rec.Identity())
}

// checkDrift reports an artifact whose identity changed between generations.
func checkDrift(r *Report, gens []File) {
	if len(gens) < 2 {
		return
	}
	sort.SliceStable(gens, func(i, j int) bool { return generationLess(gens[i], gens[j]) })

	var history []string
	changed := false
	prev := gens[0].Doc.Record.Identity()
	history = append(history, prev.String())

	for _, g := range gens[1:] {
		id := g.Doc.Record.Identity()
		if id != prev {
			changed = true
			history = append(history, id.String())
			prev = id
		}
	}
	if !changed {
		return
	}

	last := gens[len(gens)-1]
	r.add(KindIdentityDrift, last.Doc.Record.Index, last.Artifact,
		"identity changed across %d generations: %s",
		len(gens), strings.Join(history, " -> "))
}

// checkSlots reports one index claimed by different identities in different artifacts.
func checkSlots(r *Report, latest []File) {
	byIndex := make(map[int][]File)
	for _, f := range latest {
		if !f.Doc.Has(record.FieldIndex) {
			continue
		}
		byIndex[f.Doc.Record.Index] = append(byIndex[f.Doc.Record.Index], f)
	}

	for idx, group := range byIndex {
		if len(group) < 2 {
			continue
		}
		first := group[0].Doc.Record.Identity()
		conflict := false
		for _, f := range group[1:] {
			if !f.Doc.Record.Identity().SameAssignment(first) {
				conflict = true
				break
			}
		}
		if !conflict {
			continue
		}

		claims := make([]string, 0, len(group))
		for _, f := range group {
			claims = append(claims, f.Doc.Record.Identity().Assignment()+" ("+f.Artifact+")")
		}
		r.add(KindSlotConflict, idx, group[0].Artifact,
			"index %d is assigned to different identities: %s",
			idx, strings.Join(claims, ", "))
	}
}

func checkShared(r *Report, latest []File) {
	ids := make([]record.Identity, 0, len(latest))
	paths := make(map[record.Identity]string, len(latest))
	for _, f := range latest {
		if !f.Doc.Has(record.FieldReaderID) || !f.Doc.Has(record.FieldPortal) {
			continue
		}
		id := f.Doc.Record.Identity()
		ids = append(ids, id)
		if _, ok := paths[id]; !ok {
			paths[id] = f.Artifact
		}
	}
	sharedGroups(r, ids, func(id record.Identity) string { return paths[id] })
}

// sharedGroups reports each ID/portal pair used on more than one index.
func sharedGroups(r *Report, ids []record.Identity, pathOf func(record.Identity) string) {
	indices := make(map[string]map[int]record.Identity)
	for _, id := range ids {
		key := id.Assignment()
		if indices[key] == nil {
			indices[key] = make(map[int]record.Identity)
		}
		indices[key][id.Index] = id
	}

	for assignment, set := range indices {
		if len(set) < 2 {
			continue
		}
		idx := make([]int, 0, len(set))
		for i := range set {
			idx = append(idx, i)
		}
		sort.Ints(idx)

		for _, i := range idx {
			r.add(KindSharedIdentity, i, pathOf(set[i]),
				"%s is also used by index %s", assignment, otherIndices(idx, i))
		}
	}
}

func checkAgainstMaster(r *Report, f File, master *cfg.Config) {
	if !f.Doc.Has(record.FieldIndex) {
		return
	}
	rec := f.Doc.Record

	want, ok := master.Reader(rec.Index)
	if !ok {
		// The main header may legitimately carry the fallback for an unassigned index;
		// that case is reported once as main-index-unassigned.
		if f.Doc.Kind == header.KindMain && rec.Index == master.MainReaderIndex() {
			return
		}
		r.add(KindUnknownIndex, rec.Index, f.Artifact,
			"index %d is not in the master reader table", rec.Index)
		return
	}

	wantID := record.Identity{Index: want.Index, ReaderID: want.ID, Portal: want.Portal}
	if !rec.Identity().SameAssignment(wantID) {
		r.add(KindMasterMismatch, rec.Index, f.Artifact,
			"file declares %s, master assigns %s",
			rec.Identity().Assignment(), wantID.Assignment())
	}
}

// ---- helpers ----

func latestGenerations(byArtifact map[string][]File) []File {
	out := make([]File, 0, len(byArtifact))
	for _, gens := range byArtifact {
		best := gens[0]
		for _, g := range gens[1:] {
			if generationLess(best, g) {
				best = g
			}
		}
		out = append(out, best)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Artifact < out[j].Artifact })
	return out
}

func otherIndices(all []int, self int) string {
	var parts []string
	for _, i := range all {
		if i != self {
			parts = append(parts, strconv.Itoa(i))
		}
	}
	return strings.Join(parts, ", ")
}
