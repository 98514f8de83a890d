// Package script executes SQL script files against one database connection.
//
// A script is decoded into lines (Decode), the lines are cut into statements
// at the configured sql delimiter and into transactions at lines holding the
// transaction delimiter (Splitter), and every statement is handed to a Sink
// that either executes it right away (DirectSink) or collects it for the
// driver's batch API (BatchSink). Runner ties these together for single files
// and for whole directories.
package script
