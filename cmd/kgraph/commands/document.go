package commands

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/rdf"
)

// Document is one write request in an apply file. A file may hold several
// documents separated by "---"; they are applied in order.
//
//	mode: upsert
//	graph: urn:kg:graph:main
//	target: urn:entity:1
//	prefixes:
//	  ex: http://example.org/
//	statements:
//	  - {s: urn:entity:1, p: a, iri: "kg:KGEntity"}
//	  - {s: urn:entity:1, p: "ex:name", literal: Acme, lang: en}
//
// The prefixes kg, rdf and xsd are predeclared; kg is the configured
// vocabulary namespace. The predicate "a" is rdf:type.
type Document struct {
	Mode       string            `yaml:"mode"`
	Graph      string            `yaml:"graph"`
	Target     string            `yaml:"target"`
	Parent     string            `yaml:"parent,omitempty"`
	Prefixes   map[string]string `yaml:"prefixes,omitempty"`
	Statements []DocStatement    `yaml:"statements"`
}

// DocStatement is a statement whose object is exactly one of IRI, Literal
// or Blank.
type DocStatement struct {
	Subject   string  `yaml:"s"`
	Predicate string  `yaml:"p"`
	IRI       string  `yaml:"iri,omitempty"`
	Blank     string  `yaml:"bnode,omitempty"`
	Literal   *string `yaml:"literal,omitempty"`
	Datatype  string  `yaml:"datatype,omitempty"`
	Lang      string  `yaml:"lang,omitempty"`
}

// ReadDocuments decodes every document of an apply file.
func ReadDocuments(r io.Reader) ([]Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var docs []Document
	for {
		var d Document
		err := dec.Decode(&d)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithKind(errors.Wrapf(err, "document %d", len(docs)+1), errors.InvalidStatement)
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return nil, errors.InvalidStatementf("no documents to apply")
	}
	return docs, nil
}

// Request converts d into a lifecycle request. An empty mode or graph falls
// back to the given defaults.
func (d Document) Request(vocab rdf.Vocabulary, defaultMode lifecycle.Mode, defaultGraph string) (lifecycle.Request, error) {
	req := lifecycle.Request{Mode: defaultMode, Graph: defaultGraph}
	if d.Mode != "" {
		mode, err := lifecycle.ParseMode(d.Mode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}

	px := prefixes{
		"kg":  vocab.Namespace,
		"rdf": rdf.RDFNamespace,
		"xsd": rdf.XSDNamespace,
	}
	for k, v := range d.Prefixes {
		px[k] = v
	}

	if d.Graph != "" {
		req.Graph = px.expand(d.Graph)
	}
	req.TargetURI = px.expand(d.Target)
	if d.Parent != "" {
		req.ParentURI = px.expand(d.Parent)
	}

	req.Payload = make([]rdf.Statement, 0, len(d.Statements))
	for i, ds := range d.Statements {
		st, err := ds.statement(px)
		if err != nil {
			return req, errors.Wrapf(err, "statement %d", i+1)
		}
		req.Payload = append(req.Payload, st)
	}
	return req, nil
}

func (ds DocStatement) statement(px prefixes) (rdf.Statement, error) {
	var st rdf.Statement
	if ds.Subject == "" || ds.Predicate == "" {
		return st, errors.InvalidStatementf("s and p are required")
	}
	st.Subject = px.resource(ds.Subject)
	if ds.Predicate == "a" {
		st.Predicate = rdf.IRI(rdf.RDFType)
	} else {
		st.Predicate = rdf.IRI(px.expand(ds.Predicate))
	}

	set := 0
	if ds.IRI != "" {
		st.Object = rdf.IRI(px.expand(ds.IRI))
		set++
	}
	if ds.Blank != "" {
		st.Object = rdf.BlankNode(ds.Blank)
		set++
	}
	if ds.Literal != nil {
		switch {
		case ds.Lang != "" && ds.Datatype != "":
			// Only rdf:langString may sit next to a language
			lit := rdf.LangLiteral(*ds.Literal, ds.Lang)
			lit.Datatype = px.expand(ds.Datatype)
			c, err := lit.Canonical()
			if err != nil {
				return st, err
			}
			st.Object = c
		case ds.Lang != "":
			st.Object = rdf.LangLiteral(*ds.Literal, ds.Lang)
		case ds.Datatype != "":
			st.Object = rdf.TypedLiteral(*ds.Literal, px.expand(ds.Datatype))
		default:
			st.Object = rdf.Literal(*ds.Literal)
		}
		set++
	}
	if set != 1 {
		return st, errors.InvalidStatementf("%s %s needs exactly one of iri, bnode or literal", ds.Subject, ds.Predicate)
	}
	if ds.Literal == nil && (ds.Lang != "" || ds.Datatype != "") {
		return st, errors.InvalidStatementf("lang and datatype only apply to literals")
	}
	return st, nil
}

type prefixes map[string]string

// expand replaces a declared prefix; anything else is returned unchanged.
func (p prefixes) expand(s string) string {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return s
	}
	if ns, ok := p[s[:i]]; ok && !strings.HasPrefix(s[i+1:], "//") {
		return ns + s[i+1:]
	}
	return s
}

func (p prefixes) resource(s string) rdf.Term {
	if strings.HasPrefix(s, "_:") {
		return rdf.BlankNode(s)
	}
	return rdf.IRI(p.expand(s))
}
