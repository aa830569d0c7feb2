// Package panel defines the shared contracts of the atrium admin-panel
// framework: page types, data records, streaming cursors and the error
// taxonomy used by field resolution and export.
//
// # Architecture
//
// Resources declare fields. Fields are compiled into per-page field sets,
// bound to data rows and streamed into downloadable files:
//
//	Resource declaration
//	     ↓
//	Field Set Resolver (pkg/resource)
//	     ↓
//	Row Projector (pkg/export) ← Cursor (Queryable)
//	     ↓
//	Export Pipeline (CSV / XLSX, sync or queued)
//	     ↓
//	Storage + Notifier
//
// # Records and Cursors
//
// A Queryable hands out forward-only cursors. Cursors stream rows and must
// never buffer the whole result set:
//
//	cur, err := q.Cursor(ctx)
//	if err != nil {
//	    return err
//	}
//	defer cur.Close()
//	for cur.Next() {
//	    rec := cur.Record()
//	    // ...
//	}
//	return cur.Err()
//
// # Query Parameters
//
// The filters of the page the user is looking at travel on the context.
// Background workers re-attach the parameters captured at request time so
// that query resolution sees the same filters as the original request.
//
// # Errors
//
//   - ConfigurationError: fatal resolution/construction problems
//   - WriterError: the tabular writer failed (open, unsupported, io)
//
// Errors returned by custom page lookups are propagated unchanged.
package panel
