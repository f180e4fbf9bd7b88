package ports

import "context"

// Export — CSV-выгрузка всех записей; URL пустой, если архив в S3 не настроен
type Export struct {
	Filename string
	Data     []byte
	URL      string
}

type ExportService interface {
	ExportCSV(ctx context.Context) (*Export, error)
}
