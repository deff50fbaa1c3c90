package metatype

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// xmlMetaData mirrors the <MetaData> document ctkMTDataParser reads:
// localization base, one or more <OCD> schemas, and one or more
// <Designate> bindings of a PID (or factory PID) to one of those OCDs.
type xmlMetaData struct {
	XMLName       xml.Name       `xml:"MetaData"`
	Localization  string         `xml:"localization,attr"`
	OCDs          []xmlOCD       `xml:"OCD"`
	Designates    []xmlDesignate `xml:"Designate"`
}

type xmlOCD struct {
	ID          string  `xml:"id,attr"`
	Name        string  `xml:"name,attr"`
	Description string  `xml:"description,attr"`
	ADs         []xmlAD `xml:"AD"`
}

type xmlAD struct {
	ID          string       `xml:"id,attr"`
	Name        string       `xml:"name,attr"`
	Description string       `xml:"description,attr"`
	Type        string       `xml:"type,attr"`
	Cardinality string       `xml:"cardinality,attr"`
	Min         string       `xml:"min,attr"`
	Max         string       `xml:"max,attr"`
	Required    string       `xml:"required,attr"`
	Default     string       `xml:"default,attr"`
	Options     []xmlOption  `xml:"Option"`
}

type xmlOption struct {
	Label string `xml:"label,attr"`
	Value string `xml:"value,attr"`
}

type xmlDesignate struct {
	PID        string      `xml:"pid,attr"`
	FactoryPID string      `xml:"factoryPid,attr"`
	Plugin     string      `xml:"plugin,attr"`
	Optional   string      `xml:"optional,attr"`
	Merge      string      `xml:"merge,attr"`
	Object     xmlDesObject `xml:"Object"`
}

type xmlDesObject struct {
	OCDRef string `xml:"ocdref,attr"`
}

// Designate is a PID (or factory PID) bound to an ObjectClassDefinition,
// matching ctkMTDataParser's DesignateInfo.
type Designate struct {
	PID        string
	FactoryPID string
	Plugin     string
	Optional   bool
	Merge      bool
	OCD        *ObjectClassDefinition
}

// ParseResult is everything one metatype XML document contributed:
// every OCD it defined, keyed by ID, and every PID/factory-PID binding.
type ParseResult struct {
	OCDs       map[string]*ObjectClassDefinition
	Designates []Designate
}

// Parse reads a single metatype XML document from r, matching the
// <MetaData>/<OCD>/<AD>/<Option>/<Designate>/<Object> vocabulary
// ctkMTDataParser reads (spec §4.F "Metatype"). A document with no
// Designate at all, or a Designate referencing a missing or unknown
// ocdref, is an error (ctkMTDataParser::metaDataHandler/objectHandler);
// an OCD that no Designate references is accepted.
func Parse(r io.Reader) (*ParseResult, error) {
	var doc xmlMetaData
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("metatype: failed to parse metadata document: %w", err)
	}
	if len(doc.Designates) == 0 {
		return nil, fmt.Errorf("metatype: metadata document is missing a Designate element")
	}

	ocds := make(map[string]*ObjectClassDefinition, len(doc.OCDs))
	for _, xo := range doc.OCDs {
		ocd, err := buildOCD(xo)
		if err != nil {
			return nil, err
		}
		ocds[ocd.ID] = ocd
	}

	result := &ParseResult{OCDs: ocds}
	for _, xd := range doc.Designates {
		if xd.Object.OCDRef == "" {
			return nil, fmt.Errorf("metatype: designate for pid %q is missing an Object/ocdref", xd.PID)
		}
		ocd, ok := ocds[xd.Object.OCDRef]
		if !ok {
			return nil, fmt.Errorf("metatype: designate for pid %q references unknown ocdref %q", xd.PID, xd.Object.OCDRef)
		}
		result.Designates = append(result.Designates, Designate{
			PID:        xd.PID,
			FactoryPID: xd.FactoryPID,
			Plugin:     xd.Plugin,
			Optional:   xd.Optional == "true",
			Merge:      xd.Merge == "true",
			OCD:        ocd,
		})
	}
	return result, nil
}

func buildOCD(xo xmlOCD) (*ObjectClassDefinition, error) {
	if xo.ID == "" {
		return nil, fmt.Errorf("metatype: OCD element is missing an id")
	}
	ocd := &ObjectClassDefinition{ID: xo.ID, Name: xo.Name, Description: xo.Description}
	for _, xa := range xo.ADs {
		ad, required, err := buildAD(xa)
		if err != nil {
			return nil, fmt.Errorf("metatype: OCD %s: %w", xo.ID, err)
		}
		ocd.AddAttributeDefinition(ad, required)
	}
	return ocd, nil
}

// buildAD converts one <AD> element into an AttributeDefinition, matching
// ctkMTDataParser::adHandler: TYPE is mandatory (a missing or unrecognized
// value raises MISSING_ATTRIBUTE rather than defaulting to String),
// DEFAULT is mandatory when CARDINALITY is 0 (raises NULL_DEFAULTS
// otherwise, since a single-valued attribute has nowhere else to source
// its initial value from), and any <Option> children are validated and
// filtered through AttributeDefinition.SetOptions exactly as
// ctkAttributeDefinitionImpl::setOption does.
func buildAD(xa xmlAD) (*AttributeDefinition, bool, error) {
	if xa.ID == "" {
		return nil, false, fmt.Errorf("AD element is missing an id")
	}
	if xa.Type == "" {
		return nil, false, fmt.Errorf("AD %s: missing required attribute %q", xa.ID, "type")
	}
	typ, err := parseAttributeType(xa.Type)
	if err != nil {
		return nil, false, fmt.Errorf("AD %s: %w", xa.ID, err)
	}

	cardinality := 0
	if xa.Cardinality != "" {
		n, err := strconv.Atoi(xa.Cardinality)
		if err != nil {
			return nil, false, fmt.Errorf("AD %s: invalid cardinality %q: %w", xa.ID, xa.Cardinality, err)
		}
		cardinality = n
	}
	if xa.Default == "" && cardinality == 0 {
		return nil, false, fmt.Errorf("AD %s: default is required when cardinality is 0", xa.ID)
	}
	required := xa.Required == "" || xa.Required == "true"

	ad := &AttributeDefinition{
		ID:          xa.ID,
		Name:        xa.Name,
		Description: xa.Description,
		Type:        typ,
		Cardinality: cardinality,
		Min:         xa.Min,
		Max:         xa.Max,
		Required:    required,
	}
	if xa.Default != "" {
		ad.SetDefaultValue(xa.Default)
	}
	if len(xa.Options) > 0 {
		labels := make([]string, len(xa.Options))
		values := make([]string, len(xa.Options))
		for i, xopt := range xa.Options {
			labels[i] = escapeToken(xopt.Label)
			values[i] = escapeToken(xopt.Value)
		}
		if err := ad.SetOptions(strings.Join(labels, ","), strings.Join(values, ","), true); err != nil {
			return nil, false, fmt.Errorf("AD %s: %w", xa.ID, err)
		}
	}
	return ad, required, nil
}
