package adt

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/schema"
)

// asxValues is the asx:abap envelope used by lock and validation answers.
type asxValues struct {
	XMLName xml.Name  `xml:"abap"`
	Data    []asxData `xml:"values>DATA"`
}

type asxData struct {
	LockHandle  string `xml:"LOCK_HANDLE"`
	CorrNr      string `xml:"CORRNR"`
	Severity    string `xml:"SEVERITY"`
	ShortText   string `xml:"SHORT_TEXT"`
	CheckResult string `xml:"CHECK_RESULT"`
}

func parseLock(body []byte) (token, corrNr string, err error) {
	var v asxValues
	if err := xml.Unmarshal(body, &v); err != nil {
		return "", "", fmt.Errorf("adt: parse lock result: %w", err)
	}
	for _, d := range v.Data {
		if d.LockHandle != "" {
			return strings.TrimSpace(d.LockHandle), strings.TrimSpace(d.CorrNr), nil
		}
	}
	return "", "", fmt.Errorf("adt: lock result carries no LOCK_HANDLE")
}

// parseValidation reads a validation answer. An empty body means valid.
func parseValidation(body []byte) (valid bool, severity string, messages []string, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return true, "", nil, nil
	}
	var v asxValues
	if err := xml.Unmarshal(body, &v); err != nil {
		return false, "", nil, fmt.Errorf("adt: parse validation result: %w", err)
	}
	valid = true
	for _, d := range v.Data {
		sev := strings.ToUpper(strings.TrimSpace(d.Severity))
		if sev == "ERROR" || sev == "FATAL" {
			valid = false
			severity = sev
		} else if severity == "" {
			severity = sev
		}
		if t := strings.TrimSpace(d.ShortText); t != "" {
			messages = append(messages, t)
		}
	}
	return valid, severity, messages, nil
}

type checkRunReports struct {
	XMLName xml.Name      `xml:"checkRunReports"`
	Reports []checkReport `xml:"checkReport"`
}

type checkReport struct {
	Reporter   string         `xml:"reporter,attr"`
	Status     string         `xml:"status,attr"`
	StatusText string         `xml:"statusText,attr"`
	Messages   []checkMessage `xml:"checkMessageList>checkMessage"`
}

type checkMessage struct {
	URI       string `xml:"uri,attr"`
	Type      string `xml:"type,attr"`
	ShortText string `xml:"shortText,attr"`
}

func checkRunBody(spec KindSpec, ref domain.ObjectRef, version domain.Version, override *string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<chkrun:checkObjectList xmlns:chkrun="http://www.sap.com/adt/checkrun" xmlns:adtcore="` + nsCore + `">`)
	fmt.Fprintf(&b, `<chkrun:checkObject adtcore:uri="%s" chkrun:version="%s">`, esc(spec.ObjectURI(ref)), esc(string(version)))
	if override != nil {
		contentType := "text/plain; charset=utf-8"
		if spec.XMLSource {
			contentType = spec.SourceContentType()
		}
		b.WriteString(`<chkrun:artifacts>`)
		fmt.Fprintf(&b, `<chkrun:artifact chkrun:contentType="%s" chkrun:uri="%s">`, esc(contentType), esc(spec.SourceURI(ref)))
		b.WriteString(`<chkrun:content>` + base64.StdEncoding.EncodeToString([]byte(*override)) + `</chkrun:content>`)
		b.WriteString(`</chkrun:artifact></chkrun:artifacts>`)
	}
	b.WriteString(`</chkrun:checkObject></chkrun:checkObjectList>`)
	return b.Bytes()
}

func parseCheckRun(body []byte) (*domain.CheckResult, error) {
	res := &domain.CheckResult{Status: domain.CheckPassed}
	if len(bytes.TrimSpace(body)) == 0 {
		return res, nil
	}
	var v checkRunReports
	if err := xml.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("adt: parse check run: %w", err)
	}
	for _, r := range v.Reports {
		if strings.Contains(strings.ToLower(r.StatusText), "already checked") {
			res.Status = domain.CheckAlreadyChecked
		}
		for _, m := range r.Messages {
			line, col := position(m.URI)
			res.Messages = append(res.Messages, domain.CheckMessage{
				Severity: domain.Severity(strings.ToUpper(strings.TrimSpace(m.Type))),
				Text:     strings.TrimSpace(m.ShortText),
				URI:      m.URI,
				Line:     line,
				Column:   col,
			})
		}
	}
	return res, nil
}

// position extracts line and column from a "#start=12,4" URI fragment.
func position(uri string) (line, col int) {
	i := strings.Index(uri, "#start=")
	if i < 0 {
		return 0, 0
	}
	frag := uri[i+len("#start="):]
	if j := strings.IndexAny(frag, ";&"); j >= 0 {
		frag = frag[:j]
	}
	parts := strings.SplitN(frag, ",", 2)
	line, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		col, _ = strconv.Atoi(parts[1])
	}
	return line, col
}

func activationBody(spec KindSpec, ref domain.ObjectRef) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<adtcore:objectReferences xmlns:adtcore="` + nsCore + `">`)
	fmt.Fprintf(&b, `<adtcore:objectReference adtcore:uri="%s" adtcore:name="%s"/>`, esc(spec.ObjectURI(ref)), esc(ref.Name))
	b.WriteString(`</adtcore:objectReferences>`)
	return b.Bytes()
}

type activationMessages struct {
	XMLName    xml.Name `xml:"messages"`
	Properties *struct {
		Checked   string `xml:"checkExecuted,attr"`
		Activated string `xml:"activationExecuted,attr"`
		Generated string `xml:"generationExecuted,attr"`
	} `xml:"properties"`
	Messages []struct {
		Type   string   `xml:"type,attr"`
		Line   int      `xml:"line,attr"`
		Href   string   `xml:"href,attr"`
		Texts  []string `xml:"shortText>txt"`
		Object string   `xml:"objDescr,attr"`
	} `xml:"msg"`
}

func parseActivation(body []byte) (*domain.ActivationResult, error) {
	res := &domain.ActivationResult{Activated: true, Checked: true, Generated: true}
	if len(bytes.TrimSpace(body)) == 0 {
		return res, nil
	}
	var v activationMessages
	if err := xml.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("adt: parse activation result: %w", err)
	}
	if v.Properties != nil {
		res.Checked = v.Properties.Checked == "true"
		res.Activated = v.Properties.Activated == "true"
		res.Generated = v.Properties.Generated == "true"
	}
	for _, m := range v.Messages {
		msg := domain.CheckMessage{
			Severity: domain.Severity(strings.ToUpper(strings.TrimSpace(m.Type))),
			Text:     strings.TrimSpace(strings.Join(m.Texts, " ")),
			URI:      m.Href,
			Line:     m.Line,
		}
		if msg.Text == "" {
			msg.Text = m.Object
		}
		res.Messages = append(res.Messages, msg)
	}
	if res.HasErrors() {
		res.Activated = false
	}
	return res, nil
}

// extraValue renders an extra field the way the backend expects it.
// Booleans are always written as "true" or "false".
func extraValue(t schema.Type, v string) string {
	v = strings.TrimSpace(v)
	if _, ok := t.(*schema.BoolType); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return strconv.FormatBool(parsed)
		}
	}
	return strings.ToLower(v)
}

func createBody(spec KindSpec, meta domain.ObjectMetadata, language string) []byte {
	ref := meta.Ref
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&b, `<%s %s xmlns:adtcore="%s" adtcore:description="%s" adtcore:name="%s" adtcore:type="%s"`,
		spec.RootElement, spec.RootNamespace, nsCore, esc(meta.Description), esc(ref.Name), esc(spec.Type))
	if language != "" {
		fmt.Fprintf(&b, ` adtcore:masterLanguage="%s" adtcore:language="%s"`, esc(language), esc(language))
	}
	if meta.Responsible != "" {
		fmt.Fprintf(&b, ` adtcore:responsible="%s"`, esc(strings.ToUpper(meta.Responsible)))
	}
	for _, key := range spec.Extra.Keys() {
		if v, ok := meta.Extra[key]; ok {
			fmt.Fprintf(&b, ` %s:%s="%s"`, spec.extraPrefix(), key, esc(extraValue(spec.Extra[key], v)))
		}
	}
	b.WriteString(`>`)
	if ref.Parent != "" {
		parent := domain.ObjectRef{Kind: domain.KindFunctionGroup, Name: ref.Parent}
		group := Specs[domain.KindFunctionGroup]
		fmt.Fprintf(&b, `<adtcore:containerRef adtcore:name="%s" adtcore:type="%s" adtcore:uri="%s"/>`,
			esc(ref.Parent), esc(group.Type), esc(group.ObjectURI(parent)))
	} else {
		fmt.Fprintf(&b, `<adtcore:packageRef adtcore:name="%s"/>`, esc(ref.Package))
	}
	fmt.Fprintf(&b, `</%s>`, spec.RootElement)
	return b.Bytes()
}

func deletionBody(spec KindSpec, ref domain.ObjectRef, transport string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<del:deletionRequest xmlns:del="http://www.sap.com/adt/deletion" xmlns:adtcore="` + nsCore + `">`)
	fmt.Fprintf(&b, `<del:object adtcore:uri="%s">`, esc(spec.ObjectURI(ref)))
	if transport != "" {
		b.WriteString(`<del:transportNumber>` + esc(transport) + `</del:transportNumber>`)
	}
	b.WriteString(`</del:object></del:deletionRequest>`)
	return b.Bytes()
}

type deletionResult struct {
	XMLName xml.Name `xml:"deletionResult"`
	Objects []struct {
		URI       string `xml:"uri,attr"`
		IsDeleted string `xml:"isDeleted"`
		Message   string `xml:"message"`
	} `xml:"object"`
}

// parseDeletion reports whether the object was deleted and the backend message.
func parseDeletion(body []byte) (deleted bool, message string, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return true, "", nil
	}
	var v deletionResult
	if err := xml.Unmarshal(body, &v); err != nil {
		return false, "", fmt.Errorf("adt: parse deletion result: %w", err)
	}
	deleted = true
	for _, o := range v.Objects {
		if strings.TrimSpace(o.IsDeleted) == "false" {
			deleted = false
		}
		if m := strings.TrimSpace(o.Message); m != "" {
			message = m
		}
	}
	return deleted, message, nil
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
