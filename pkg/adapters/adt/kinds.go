package adt

import (
	"net/url"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/schema"
)

// KindSpec holds the wire details of one object kind.
type KindSpec struct {
	Kind domain.ObjectKind

	// Type is the ADT object type (e.g. "CLAS/OC").
	Type string

	// Collection is the URI objects of this kind live under.
	// For function modules it contains a "{parent}" placeholder.
	Collection string

	// SourcePath is appended to the object URI to address its editable source.
	// Behavior implementations are edited through the local implementations include of their class.
	SourcePath string

	// XMLSource marks kinds whose source is the object XML itself (domains, data elements).
	XMLSource bool

	// ValidationPath and the create payload root element.
	ValidationPath string
	RootElement    string
	RootNamespace  string
	ContentType    string

	// Extra declares the kind-specific create fields. Each is written as an
	// attribute of the root element under the root element's prefix.
	Extra schema.Schema
}

// extraPrefix is the namespace prefix of the root element (e.g. "class").
func (s KindSpec) extraPrefix() string {
	prefix, _, _ := strings.Cut(s.RootElement, ":")
	return prefix
}

const (
	nsCore = "http://www.sap.com/adt/core"
)

// Specs lists the wire details of every supported kind.
var Specs = map[domain.ObjectKind]KindSpec{
	domain.KindClass: {
		Kind:           domain.KindClass,
		Type:           "CLAS/OC",
		Collection:     "/sap/bc/adt/oo/classes",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/oo/validation/objectname",
		RootElement:    "class:abapClass",
		RootNamespace:  "xmlns:class=\"http://www.sap.com/adt/oo/classes\"",
		ContentType:    "application/vnd.sap.adt.oo.classes.v4+xml",
		Extra: schema.Schema{
			"final":      schema.Bool(),
			"abstract":   schema.Bool(),
			"visibility": schema.Enum("public", "protected", "private"),
		},
	},
	domain.KindInterface: {
		Kind:           domain.KindInterface,
		Type:           "INTF/OI",
		Collection:     "/sap/bc/adt/oo/interfaces",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/oo/validation/objectname",
		RootElement:    "intf:abapInterface",
		RootNamespace:  "xmlns:intf=\"http://www.sap.com/adt/oo/interfaces\"",
		ContentType:    "application/vnd.sap.adt.oo.interfaces.v5+xml",
	},
	domain.KindProgram: {
		Kind:           domain.KindProgram,
		Type:           "PROG/P",
		Collection:     "/sap/bc/adt/programs/programs",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/programs/validation",
		RootElement:    "program:abapProgram",
		RootNamespace:  "xmlns:program=\"http://www.sap.com/adt/programs/programs\"",
		ContentType:    "application/vnd.sap.adt.programs.programs.v2+xml",
	},
	domain.KindTable: {
		Kind:           domain.KindTable,
		Type:           "TABL/DT",
		Collection:     "/sap/bc/adt/ddic/tables",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/ddic/tables/validation",
		RootElement:    "blue:blueSource",
		RootNamespace:  "xmlns:blue=\"http://www.sap.com/wbobj/blue\"",
		ContentType:    "application/vnd.sap.adt.tables.v2+xml",
	},
	domain.KindStructure: {
		Kind:           domain.KindStructure,
		Type:           "TABL/DS",
		Collection:     "/sap/bc/adt/ddic/structures",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/ddic/structures/validation",
		RootElement:    "blue:blueSource",
		RootNamespace:  "xmlns:blue=\"http://www.sap.com/wbobj/blue\"",
		ContentType:    "application/vnd.sap.adt.structures.v2+xml",
	},
	domain.KindDomain: {
		Kind:           domain.KindDomain,
		Type:           "DOMA/DD",
		Collection:     "/sap/bc/adt/ddic/domains",
		XMLSource:      true,
		ValidationPath: "/sap/bc/adt/ddic/domains/validation",
		RootElement:    "doma:domain",
		RootNamespace:  "xmlns:doma=\"http://www.sap.com/dictionary/domain\"",
		ContentType:    "application/vnd.sap.adt.domains.v2+xml",
	},
	domain.KindDataElement: {
		Kind:           domain.KindDataElement,
		Type:           "DTEL/DE",
		Collection:     "/sap/bc/adt/ddic/dataelements",
		XMLSource:      true,
		ValidationPath: "/sap/bc/adt/ddic/dataelements/validation",
		RootElement:    "blue:wbobj",
		RootNamespace:  "xmlns:blue=\"http://www.sap.com/wbobj/dictionary/dtel\"",
		ContentType:    "application/vnd.sap.adt.dataelements.v2+xml",
	},
	domain.KindView: {
		Kind:           domain.KindView,
		Type:           "DDLS/DF",
		Collection:     "/sap/bc/adt/ddic/ddl/sources",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/ddic/ddl/validation",
		RootElement:    "ddl:ddlSource",
		RootNamespace:  "xmlns:ddl=\"http://www.sap.com/adt/ddic/ddlsources\"",
		ContentType:    "application/vnd.sap.adt.ddlSource+xml",
	},
	domain.KindFunctionGroup: {
		Kind:           domain.KindFunctionGroup,
		Type:           "FUGR/F",
		Collection:     "/sap/bc/adt/functions/groups",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/functions/validation",
		RootElement:    "group:abapFunctionGroup",
		RootNamespace:  "xmlns:group=\"http://www.sap.com/adt/functions/groups\"",
		ContentType:    "application/vnd.sap.adt.functions.groups.v3+xml",
	},
	domain.KindFunctionModule: {
		Kind:           domain.KindFunctionModule,
		Type:           "FUGR/FF",
		Collection:     "/sap/bc/adt/functions/groups/{parent}/fmodules",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/functions/validation",
		RootElement:    "fmodule:abapFunctionModule",
		RootNamespace:  "xmlns:fmodule=\"http://www.sap.com/adt/functions/fmodules\"",
		ContentType:    "application/vnd.sap.adt.functions.fmodules.v3+xml",
	},
	domain.KindMetadataExtension: {
		Kind:           domain.KindMetadataExtension,
		Type:           "DDLX/EX",
		Collection:     "/sap/bc/adt/ddic/ddlx/sources",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/ddic/ddlx/sources/validation",
		RootElement:    "ddlxsources:ddlxSource",
		RootNamespace:  "xmlns:ddlxsources=\"http://www.sap.com/adt/ddic/ddlxsources\"",
		ContentType:    "application/vnd.sap.adt.ddic.ddlx.v1+xml",
	},
	domain.KindBehaviorDefinition: {
		Kind:           domain.KindBehaviorDefinition,
		Type:           "BDEF/BDO",
		Collection:     "/sap/bc/adt/bo/behaviordefinitions",
		SourcePath:     "/source/main",
		ValidationPath: "/sap/bc/adt/bo/behaviordefinitions/validation",
		RootElement:    "blue:blueSource",
		RootNamespace:  "xmlns:blue=\"http://www.sap.com/wbobj/blue\"",
		ContentType:    "application/vnd.sap.adt.blues.v1+xml",
	},
	domain.KindBehaviorImplementation: {
		Kind:           domain.KindBehaviorImplementation,
		Type:           "CLAS/OC",
		Collection:     "/sap/bc/adt/oo/classes",
		SourcePath:     "/includes/implementations",
		ValidationPath: "/sap/bc/adt/oo/validation/objectname",
		RootElement:    "class:abapClass",
		RootNamespace:  "xmlns:class=\"http://www.sap.com/adt/oo/classes\"",
		ContentType:    "application/vnd.sap.adt.oo.classes.v4+xml",
	},
}

// CollectionURI returns the URI new objects of this kind are posted to.
func (s KindSpec) CollectionURI(ref domain.ObjectRef) string {
	return strings.ReplaceAll(s.Collection, "{parent}", url.PathEscape(strings.ToLower(ref.Parent)))
}

// ObjectURI returns the URI of the object itself.
func (s KindSpec) ObjectURI(ref domain.ObjectRef) string {
	return s.CollectionURI(ref) + "/" + url.PathEscape(strings.ToLower(ref.Name))
}

// SourceURI returns the URI of the editable source (the object URI for XML kinds).
func (s KindSpec) SourceURI(ref domain.ObjectRef) string {
	return s.ObjectURI(ref) + s.SourcePath
}

// SourceContentType is the content type of Update payloads.
func (s KindSpec) SourceContentType() string {
	if s.XMLSource {
		return s.ContentType + "; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
