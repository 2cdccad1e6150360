// Package ensobj turns the engine's textual object references into stable
// Go proxy handles.
//
// Evaluated command replies embed markers of the form
//
//	Class: ENS_PART, desc: 'Sphere', CvfObjID: 1078, cached:no
//
// wherever a remote object appears. The Marshaller scans a reply once,
// rewrites each marker into the session-local reference grammar
// (session.obj_instance(id) for cache hits, a constructor expression for
// fresh objects), and parses the result as a Python literal extended with
// that grammar. References become *Handle values; a bracketed top level
// becomes an ObjList.
//
// The Cache maps object id to *Handle so the same remote object always
// yields the same pointer, which is what makes handle equality meaningful.
// For the three polymorphic base classes the Marshaller consults the
// engine once per fresh object to pick the concrete subtype; the
// discriminator attribute ids come from the enum snapshot taken at session
// bootstrap.
package ensobj
