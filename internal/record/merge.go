package record

// Prepend folds e in as the newest entry of existingText and returns the
// serialized result. A header already present in existingText is kept as is,
// whatever identity says; identity only seeds a header when none exists yet.
// Unstructured existingText survives as a single legacy entry.
func Prepend(e Entry, existingText string, identity *PatientInfo) string {
	prior := Recover(existingText)
	return Serialize(Merge(e, prior, identity))
}

// Merge is the structured form of Prepend. prior is not modified.
func Merge(e Entry, prior *Record, identity *PatientInfo) *Record {
	out := &Record{Entries: make([]Entry, 0, 1+entryCount(prior))}
	switch {
	case prior != nil && prior.Patient != nil:
		p := *prior.Patient
		out.Patient = &p
	case !identity.IsZero():
		out.Patient = &PatientInfo{
			Name:                singleLine(identity.Name),
			InitialIntroduction: singleLine(identity.InitialIntroduction),
		}
	}
	out.Entries = append(out.Entries, e)
	if prior != nil {
		out.Entries = append(out.Entries, prior.Entries...)
	}
	return out
}

func entryCount(r *Record) int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}
