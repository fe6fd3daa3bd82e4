// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/utils"
)

// Manager fans the final payload out to every configured destination. The
// JSON export is the contract; CSV, Excel and MongoDB are best-effort
// mirrors whose failures are reported but do not undo a successful export.
type Manager struct {
	cfg    config.OutputConfig
	logger utils.Logger
}

// NewManager builds a manager for the configured destinations.
func NewManager(cfg config.OutputConfig, logger utils.Logger) *Manager {
	if logger == nil {
		logger = utils.NewComponentLogger("output")
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Export writes the payload everywhere it is configured to go. The error
// return reflects only the primary JSON export.
func (m *Manager) Export(ctx context.Context, payload *Payload) error {
	if err := WriteJSON(m.cfg.File, payload); err != nil {
		return fmt.Errorf("JSON export failed: %w", err)
	}
	m.logger.Infof("wrote %d records to %s", len(payload.Records), m.cfg.File)

	if m.cfg.CSVFile != "" {
		if err := WriteCSV(m.cfg.CSVFile, payload.Records); err != nil {
			m.logger.Errorf("CSV export failed: %v", err)
		} else {
			m.logger.Infof("wrote CSV mirror to %s", m.cfg.CSVFile)
		}
	}

	if m.cfg.ExcelFile != "" {
		if err := WriteExcel(m.cfg.ExcelFile, payload); err != nil {
			m.logger.Errorf("Excel export failed: %v", err)
		} else {
			m.logger.Infof("wrote Excel mirror to %s", m.cfg.ExcelFile)
		}
	}

	if m.cfg.MongoDB != nil {
		if err := m.exportMongo(ctx, payload); err != nil {
			m.logger.Errorf("MongoDB export failed: %v", err)
		}
	}

	return nil
}

func (m *Manager) exportMongo(ctx context.Context, payload *Payload) error {
	writer, err := NewMongoWriter(ctx, m.cfg.MongoDB, m.logger)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	return writer.Write(ctx, payload.Records)
}
