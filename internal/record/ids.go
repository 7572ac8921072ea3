package record

import "slices"

// AddID appends id unless already present.
func AddID(ids []int, id int) []int {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func RemoveID(ids []int, id int) []int {
	return slices.DeleteFunc(slices.Clone(ids), func(v int) bool { return v == id })
}

// KeepExisting filters ids down to those for which exists reports true,
// preserving order and dropping duplicates.
func KeepExisting(ids []int, exists func(int) bool) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if exists(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
