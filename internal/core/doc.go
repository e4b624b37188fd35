// Package core runs asynchronous import and export jobs.
//
// This package holds the job domain independent of any transport. It is
// driven by the HTTP server, the queue workers, and the jobctl CLI without
// modification.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Service: the entry point for job creation, pipeline runs, and status reads.
//   - Status channel: every progress update is written to a fast cache and to
//     the job record, so pollers see it even after cache eviction.
//   - Import pipeline: a dry run validates the upload and renders a change
//     summary; a later commit run writes the records.
//   - Export pipeline: materializes records to a file and optionally emails
//     a link to the job.
//   - Trigger: the job store's on-created hook, which schedules the first run.
//
// # Import Lifecycle
//
//  1. [Service.CreateImportJob] stores the upload and inserts the job.
//  2. The store calls [Service.OnImportJobCreated], which stamps
//     ProcessingInitiated and enqueues a dry run.
//  3. [Service.RunImportJob] reports each phase ("1/5 Import started" through
//     "5/5 Import job finished"), prefixed with "[Dry run] " on dry runs.
//  4. The operator reviews the change summary and re-triggers with
//     [Service.ScheduleImport] for the commit run.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - JOB001-JOB003: Job errors (not found, unknown model, no recipient)
//   - FMT001-FMT002: Format errors (unknown, unsupported direction)
//   - FILE001-FILE005: File errors (size, encoding, empty)
//   - QUE001-QUE002: Queue errors (full, stopped)
//   - DB004-DB006: Database connectivity
//
// Pipeline failures are never retried. An import failure is written to the
// job's Errors and reported as "Import error"; an export failure is returned
// to the queue, which logs it.
package core
