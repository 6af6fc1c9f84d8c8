package db

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open uses MySQL when dsn is set and falls back to SQLite otherwise
func Open(mysqlDSN, sqliteFile string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if mysqlDSN != "" {
		dialector = mysql.Open(mysqlDSN)
		log.Info().Msg("Using MySQL database")
	} else {
		dialector = sqlite.Open(sqliteFile + "?_foreign_keys=on")
		log.Info().Str("file", sqliteFile).Msg("Using SQLite database")
	}
	return gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
}
