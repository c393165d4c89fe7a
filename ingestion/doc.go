// Package ingestion imports tenant knowledge bases from YAML.
//
// A document names the tenant and default language and lists the entries:
//
//	tenant: grand-hotel
//	language: en
//	entries:
//	  - question: What time is check-in?
//	    answer: Check-in starts at 3pm.
//	    category: arrival
//	    keywords: [checkin, arrival]
//	    priority: 2
//
// A stream may hold several documents separated by "---". Entries that fail
// validation are reported individually; the remaining entries still import.
// Re-importing a question updates the stored entry in place.
package ingestion
