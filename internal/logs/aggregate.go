package logs

import "sort"

// sentinelDate sorts before any real YYYY-MM-DD date, so the first
// record observed for a submitter always wins the initial comparison.
const sentinelDate = "1970-01-01"

// URLSigner produces a time-limited read URL for an attachment key.
// A nil signer leaves all attachment URLs null.
type URLSigner func(attachmentKey string) (string, error)

// Aggregate reduces an unordered collection of log records into
// per-submitter aggregates and today's top performer.
//
// Totals are order-independent. The latest-snapshot choice uses a
// non-strict comparison (later-or-equal date wins), and the top
// performer uses a strict one (ties keep the earlier candidate), so
// both are scan-order-dependent only among same-date duplicates. That
// nondeterminism comes with unordered storage listings and is accepted
// rather than hidden behind an input sort; callers that need a fixed
// outcome fix the scan order.
//
// Records with an empty email are skipped. A record with no date is
// attributed to today. Signer failures leave that record's attachment
// URL null and never abort the pass.
func Aggregate(records []LogRecord, today string, sign URLSigner) (*TopPerformer, []SubmitterAggregate) {
	aggregated := make(map[string]*SubmitterAggregate)
	order := make([]string, 0, len(records))
	var topPerformer *TopPerformer

	for _, record := range records {
		if record.Email == "" {
			continue
		}

		date := record.Date
		if date == "" {
			date = today
		}

		var attachmentURL *string
		if record.AttachmentKey != "" && sign != nil {
			if signed, err := sign(record.AttachmentKey); err == nil {
				attachmentURL = &signed
			}
		}
		var attachmentFilename *string
		if record.AttachmentFilename != "" {
			filename := record.AttachmentFilename
			attachmentFilename = &filename
		}

		aggregate, seen := aggregated[record.Email]
		if !seen {
			aggregate = &SubmitterAggregate{
				Email:      record.Email,
				LastUpdate: sentinelDate,
				DailyLogs:  make([]DailySnapshot, 0, 8),
			}
			aggregated[record.Email] = aggregate
			order = append(order, record.Email)
		}

		aggregate.TotalJobs += record.JobsApplied
		aggregate.TotalSubmissions += record.SubmissionsDone
		aggregate.DailyLogs = append(aggregate.DailyLogs, DailySnapshot{
			Date:               date,
			Day:                record.Day,
			TopicLearned:       record.TopicLearned,
			WhatYouLearned:     record.WhatYouLearned,
			JobsApplied:        record.JobsApplied,
			SubmissionsDone:    record.SubmissionsDone,
			RecruiterName:      record.RecruiterName,
			AttachmentURL:      attachmentURL,
			AttachmentFilename: attachmentFilename,
		})

		if date >= aggregate.LastUpdate {
			aggregate.LatestTopicLearned = record.TopicLearned
			aggregate.CurrentDay = record.Day
			aggregate.LastReflection = record.WhatYouLearned
			aggregate.LastRecruiter = record.RecruiterName
			aggregate.LastUpdate = date
			aggregate.LastAttachmentURL = attachmentURL
			aggregate.LastAttachmentFilename = attachmentFilename
		}

		if date == today {
			if topPerformer == nil || record.SubmissionsDone > topPerformer.SubmissionsDone {
				topPerformer = &TopPerformer{
					Email:              record.Email,
					SubmissionsDone:    record.SubmissionsDone,
					JobsApplied:        record.JobsApplied,
					TopicLearned:       record.TopicLearned,
					WhatYouLearned:     record.WhatYouLearned,
					RecruiterName:      record.RecruiterName,
					Day:                record.Day,
					Date:               date,
					AttachmentURL:      attachmentURL,
					AttachmentFilename: attachmentFilename,
				}
			}
		}
	}

	aggregates := make([]SubmitterAggregate, 0, len(order))
	for _, email := range order {
		aggregate := aggregated[email]
		sort.SliceStable(aggregate.DailyLogs, func(i, j int) bool {
			return aggregate.DailyLogs[i].Date > aggregate.DailyLogs[j].Date
		})
		aggregates = append(aggregates, *aggregate)
	}

	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].LastUpdate > aggregates[j].LastUpdate
	})

	return topPerformer, aggregates
}
