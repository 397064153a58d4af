package catalog

import _ "embed"

//go:embed schema_main.sql
var schemaMainSQL string

//go:embed schema_packages.sql
var schemaPackagesSQL string
