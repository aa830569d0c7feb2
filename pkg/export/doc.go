// Package export writes the records of a resource to CSV or XLSX files.
//
// # Overview
//
// An export projects every record of a resource query through the
// resource export fields: each field is bound to the record and read in
// raw mode, giving one labeled cell per field. Rows are produced lazily
// from a cursor and streamed to the writer, so memory use does not grow
// with the number of records.
//
// # Delivery
//
// A Handler runs an export either synchronously, returning the written
// file for download, or through the queue, in which case a Job is
// dispatched and a worker later calls Processor.Run. Both paths end in
// Processor.Process, which writes the file and notifies the configured
// users with a link to it.
//
// # Formats
//
// The format follows the destination path: a ".csv" suffix selects CSV
// with a configurable single character delimiter, anything else XLSX.
// The header row holds the export field labels and is written even when
// the query yields no records.
//
// Example:
//
//	h := export.NewHandler("Export",
//		export.Resource(items),
//		export.CSV(),
//		export.Delimiter(";"),
//		export.Dir("exports"),
//		export.WithStorage(disks),
//		export.WithProcessor(processor),
//	)
//	http.Handle("/resources/items/export", h)
package export
