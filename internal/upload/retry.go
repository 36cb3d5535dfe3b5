package upload

import "slices"

// Eligible returns the files to attempt in the next cycle, in batch order.
//
// With no prior errors every file is eligible. Otherwise a file is eligible
// when it failed before or has never succeeded; files that already
// succeeded are skipped so they are not written twice.
func Eligible(files []string, priorErrors []Outcome, priorSuccesses []string) []string {
	if len(priorErrors) == 0 {
		return dedup(files)
	}

	failed := make(map[string]struct{}, len(priorErrors))
	for _, o := range priorErrors {
		failed[o.FileName] = struct{}{}
	}

	var out []string
	for _, name := range files {
		_, wasError := failed[name]
		if wasError || !slices.Contains(priorSuccesses, name) {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}

func dedup(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
