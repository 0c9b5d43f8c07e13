// Package toolshed reads ToolShed metadata: repository descriptors
// (.shed.yml), ToolShed-addressed tool references and the registry API.
package toolshed
