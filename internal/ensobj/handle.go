package ensobj

import (
	"fmt"
)

// Handle is the client-side proxy for one remote engine object. Handles are
// interned in the session cache: the same object id always resolves to the
// same *Handle, so pointer equality is object identity.
type Handle struct {
	// ID is the engine-assigned object identifier.
	ID int64
	// Class is the object's class name, refined to the concrete subtype
	// when one was resolved.
	Class string
	// AttrID and AttrValue record the discriminator consulted during
	// subtype resolution. AttrID is zero for objects that needed none.
	AttrID    int64
	AttrValue any
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s(id=%d)", h.Class, h.ID)
}

// Ref returns the remote-side expression that reconstitutes this object in
// the engine's interpreter, for embedding in further commands.
func (h *Handle) Ref() string {
	return RemoteRef(h.ID)
}

// RemoteRef returns the engine expression resolving an object id to the
// live remote object.
func RemoteRef(id int64) string {
	return fmt.Sprintf("ensight.objs.wrap_id(%d)", id)
}

// ObjList is the ordered container marshalled from a bracketed reply. It
// may hold handles, plain values, or a mix; Handles filters the proxies.
type ObjList []any

// Handles returns the proxy handles in the list, in order.
func (l ObjList) Handles() []*Handle {
	out := make([]*Handle, 0, len(l))
	for _, item := range l {
		if h, ok := item.(*Handle); ok {
			out = append(out, h)
		}
	}
	return out
}

// Find returns the handles whose class matches name exactly.
func (l ObjList) Find(class string) []*Handle {
	var out []*Handle
	for _, h := range l.Handles() {
		if h.Class == class {
			out = append(out, h)
		}
	}
	return out
}
