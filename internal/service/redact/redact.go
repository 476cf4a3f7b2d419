// Package redact strips clinically sensitive content from responses
// for callers without clinical privilege. It is a deny-list transform
// applied after all aggregation, immediately before a payload leaves
// the process; endpoints returning these shapes must route through it.
package redact

import (
	"github.com/clinicore/clinic-api/internal/model"
)

// clinical reports whether the role may see clinical content.
func clinical(role model.Role) bool {
	return role != model.RoleReceptionist
}

// DayRows removes notes and record previews from a dashboard row list.
func DayRows(role model.Role, rows []*model.DayRow) []*model.DayRow {
	if clinical(role) {
		return rows
	}
	out := make([]*model.DayRow, 0, len(rows))
	for _, row := range rows {
		clean := *row
		clean.Notes = ""
		clean.MedicalRecord = nil
		out = append(out, &clean)
	}
	return out
}

// Dashboard redacts the rows of a day dashboard in place of the
// originals; KPIs carry no clinical content and pass through.
func Dashboard(role model.Role, d *model.DayDashboard) *model.DayDashboard {
	if clinical(role) {
		return d
	}
	clean := *d
	clean.Rows = DayRows(role, d.Rows)
	return &clean
}

// Appointment removes notes and the embedded medical record from a
// single appointment detail.
func Appointment(role model.Role, detail *model.AppointmentDetail) *model.AppointmentDetail {
	if clinical(role) {
		return detail
	}
	clean := *detail
	clean.Notes = ""
	clean.MedicalRecord = nil
	return &clean
}

// Patient drops the patient's entire medical record collection.
func Patient(role model.Role, detail *model.PatientDetail) *model.PatientDetail {
	if clinical(role) {
		return detail
	}
	clean := *detail
	clean.MedicalRecords = nil
	return &clean
}

// History nulls each entry's medical record rather than omitting the
// key, keeping the response shape stable for callers.
func History(role model.Role, entries []*model.PatientHistoryEntry) []*model.PatientHistoryEntry {
	if clinical(role) {
		return entries
	}
	out := make([]*model.PatientHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		clean := *entry
		clean.Notes = ""
		clean.MedicalRecord = nil
		out = append(out, &clean)
	}
	return out
}
