// Package handler provides the HTTP API for the inventory service.
//
// Endpoints are grouped by resource:
//
//	/api/hosts          host listing and creation
//	/api/hosts/{name}   single-host lookup and removal
//	/api/groups         group listing and creation
//	/api/groups/{name}  group removal and child attachment
//	/api/groups-dict    derived group-to-hosts mapping
//	/api/entities/{name}/vars  variable writes on hosts or groups
//	/api/sources        apply a YAML source document
//	/api/reload         re-read configured source files
//	/api/import/{format}, /api/export/{format}  bulk snapshot exchange
//
// Invalid names map to 400, unknown entities to 404, and attempts to
// create a group cycle to 409.
package handler
