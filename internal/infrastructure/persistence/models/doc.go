// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// of ORM concerns.
//
// Region stores hold companies, campaigns and campaign_participants. The
// central store holds companies (with the points balance),
// points_charge_requests and points_transactions. Every store has its own
// outbox_events table.
package models
