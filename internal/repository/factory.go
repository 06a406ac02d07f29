package repository

import (
	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/postgres"
	postgresRepo "github.com/ledgerline/ledgerline/internal/repository/postgres"
)

func NewDocumentRepository(client postgres.IClient, logger *logger.Logger) document.Repository {
	return postgresRepo.NewDocumentRepository(client, logger)
}
