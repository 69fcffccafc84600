// Package inbox watches a capture directory and queues what lands in it
// for upload.
//
// A file dropped into the inbox becomes a single-page upload. A directory
// becomes one multi-page upload whose pages are its files in name order.
// Entries are queued once they have been quiet for the settle period and
// are then moved under the hidden .queued directory so they are never
// picked up twice.
package inbox
