package domain

import (
	"github.com/Kailou1991/ahis-001-sub001/internal/domain/facts"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain/geo"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain/sources"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain/taxonomy"
)

const (
	UnknownName        = geo.UnknownName
	UnknownDiseaseType = taxonomy.UnknownType

	CampaignMasse  = facts.CampaignMasse
	CampaignCiblee = facts.CampaignCiblee

	TradeImport  = facts.TradeImport
	TradeExport  = facts.TradeExport
	TradeTransit = facts.TradeTransit

	SyncStatusSuccess = sources.SyncStatusSuccess
	SyncStatusFailure = sources.SyncStatusFailure

	SeverityRejected = sources.SeverityRejected
	SeverityReview   = sources.SeverityReview

	DefaultBaseURL = sources.DefaultBaseURL
)

type Region = geo.Region
type Department = geo.Department
type Commune = geo.Commune

type Species = taxonomy.Species
type Disease = taxonomy.Disease

type CampaignType = facts.CampaignType
type TradeDirection = facts.TradeDirection
type Geography = facts.Geography
type VaccinationFact = facts.VaccinationFact
type OutbreakFact = facts.OutbreakFact
type ObjectiveFact = facts.ObjectiveFact
type InspectionFact = facts.InspectionFact
type TradeOperationFact = facts.TradeOperationFact

type FormSource = sources.FormSource
type SyncStatus = sources.SyncStatus
type SyncRunRecord = sources.SyncRunRecord
type QuarantineSeverity = sources.QuarantineSeverity
type QuarantineEntry = sources.QuarantineEntry

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&Region{},
		&Department{},
		&Commune{},

		&Species{},
		&Disease{},

		&FormSource{},
		&SyncRunRecord{},
		&QuarantineEntry{},

		&VaccinationFact{},
		&OutbreakFact{},
		&ObjectiveFact{},
		&InspectionFact{},
		&TradeOperationFact{},
	}
}
