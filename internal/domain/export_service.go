package domain

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

var exportHeader = []string{
	"user_id", "username", "method", "duration_months",
	"start_ts", "end_ts", "state", "receipt_file_id", "language",
}

type ExportService struct {
	subs ports.SubscriptionRepo
	// nil — архив в S3 не настроен
	s3  ports.S3Client
	log *zap.SugaredLogger
	now func() time.Time
}

func NewExportService(subs ports.SubscriptionRepo, s3 ports.S3Client, log *zap.SugaredLogger) *ExportService {
	return &ExportService{subs: subs, s3: s3, log: log, now: time.Now}
}

var _ ports.ExportService = (*ExportService)(nil)

func (s *ExportService) ObjectKey(at time.Time) string {
	return fmt.Sprintf("exports/%s/subscriptions-%s.csv", at.UTC().Format("2006-01-02"), at.UTC().Format("150405"))
}

func (s *ExportService) ExportCSV(ctx context.Context) (*ports.Export, error) {
	subs, err := s.subs.List(ctx, ports.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if err := w.Write(exportRow(sub)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	exp := &ports.Export{
		Filename: "subscriptions.csv",
		Data:     buf.Bytes(),
	}

	if s.s3 != nil {
		key := s.ObjectKey(s.now())
		url, err := s.s3.PutObject(ctx, key, bytes.NewReader(exp.Data), int64(len(exp.Data)), "text/csv")
		if err != nil {
			// выгрузка в чат важнее архива
			s.log.Warnw("[export] s3 archive failed", "key", key, "err", err)
		} else {
			exp.URL = url
		}
	}

	s.log.Infow("[export] csv built", "rows", len(subs), "url", exp.URL)
	return exp, nil
}

func exportRow(sub *ports.Subscription) []string {
	return []string{
		strconv.FormatInt(sub.UserID, 10),
		sub.Username,
		sub.Method,
		strconv.Itoa(sub.DurationMonths),
		unixOrEmpty(sub.StartAt),
		unixOrEmpty(sub.EndAt),
		string(sub.State),
		sub.ReceiptFileID,
		string(sub.Language),
	}
}

func unixOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}
