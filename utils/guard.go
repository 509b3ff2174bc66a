package utils

// A Guard runs cleanup on every return path except the ones that declared success, for
// functions that hand out a resource only when they succeed:
//
//	guard := NewGuard(func() { listener.Close() })
//	defer guard.OnFail()
//	if err != nil { return err }
//	guard.Success()
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a guard that calls onFailCleanup unless Success is called first.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success disarms the cleanup.
func (guard *Guard) Success() {
	guard.success = true
}
