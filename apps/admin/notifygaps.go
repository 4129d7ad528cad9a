package main

import (
	"context"
	"time"

	"github.com/classledger/backend/core/attendance"
)

// notifyGaps emails the missing-attendance digest for the given day
// (today in school time when dateStr is empty).
func (cli *commandLine) notifyGaps(dateStr string) error {
	date := time.Now().In(cli.conf.Location())
	if dateStr != "" {
		var err error
		if date, err = time.Parse(attendance.DateLayout, dateStr); err != nil {
			return err
		}
	}
	return cli.attSvc.NotifyCoverageGaps(context.Background(), date)
}
