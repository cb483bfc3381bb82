package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoadProducts ingests a CSV catalog into the products table, ignoring
// duplicates by barcode. Expected columns:
// name, barcode, category, laboratory, cost_price, sale_price.
func LoadProducts(db *sqlx.DB, csvPath string, logger *zap.Logger) {
	file, err := os.Open(csvPath)
	if err != nil {
		logger.Warn("product catalog not loaded", zap.String("path", csvPath), zap.Error(err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		logger.Warn("unable to read catalog header", zap.Error(err))
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		logger.Warn("unable to start catalog transaction", zap.Error(err))
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO products (name, barcode, category, laboratory, cost_price, sale_price)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		logger.Warn("unable to prepare product insert", zap.Error(err))
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read catalog row", zap.Error(err))
			continue
		}
		if len(record) < 6 {
			continue
		}
		name := strings.TrimSpace(record[0])
		barcode := strings.TrimSpace(record[1])
		category := strings.TrimSpace(record[2])
		laboratory := strings.TrimSpace(record[3])
		if name == "" {
			continue
		}
		costPrice, err := decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			costPrice = decimal.Zero
		}
		salePrice, err := decimal.NewFromString(strings.TrimSpace(record[5]))
		if err != nil {
			salePrice = decimal.Zero
		}

		var barcodeArg any
		if barcode != "" {
			barcodeArg = barcode
		}
		if _, err := stmt.Exec(name, barcodeArg, category, laboratory, costPrice, salePrice); err != nil {
			logger.Warn("unable to insert product", zap.String("name", name), zap.Error(err))
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("unable to commit catalog seed", zap.Error(err))
		return
	}
	logger.Info("seeded product catalog", zap.Int("rows", rows))
}
