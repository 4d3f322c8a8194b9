package engine

// Progress receives best-effort (current, total, label) updates from long
// operations. It is a side channel with no effect on correctness;
// implementations must tolerate repeated calls.
type Progress interface {
	Report(current, total int, label string)
}

// ProgressFunc adapts a plain function to the Progress interface.
type ProgressFunc func(current, total int, label string)

func (f ProgressFunc) Report(current, total int, label string) {
	f(current, total, label)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Report(int, int, string) {}
