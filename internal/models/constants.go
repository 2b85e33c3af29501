package models

// File permissions for the shared store and exported files
const (
	PermissionStoreFile  = 0600
	PermissionStoreDir   = 0700
	PermissionExportFile = 0644
)

// Identifiers shared by both process contexts. Changing either moves the store.
const (
	DefaultGroupIdentifier = "group.com.kakeibo.shared"
	DefaultSchemaName      = "Kakeibo"
)
