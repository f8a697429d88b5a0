package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/muurk/upnpcp/internal/logging"
	"go.uber.org/zap"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	soapEncodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Arg is one named in-argument of an action call
type Arg struct {
	Name  string
	Value string
}

// ActionRequest describes one SOAP action invocation
type ActionRequest struct {
	ControlURL  string // POST target
	ServiceType string // envelope namespace and SOAPACTION prefix
	Action      string // action name
	Args        []Arg  // in-arguments in declaration order
}

// SOAPAction returns the SOAPACTION header value: "<serviceType>#<action>" in quotes
func (r *ActionRequest) SOAPAction() string {
	return `"` + r.ServiceType + "#" + r.Action + `"`
}

// ActionResponse is a successful SOAP response
type ActionResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Fields maps each child element of <ActionResponse> to its text
	Fields map[string]string

	// Order lists field names as they appeared in the response
	Order []string
}

// Field returns a response field and whether it was present
func (r *ActionResponse) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Call performs a SOAP action against the request's control URL.
// A SOAP fault in the response yields *RemoteFaultError regardless of HTTP status.
func (c *Client) Call(ctx context.Context, ar *ActionRequest) (*ActionResponse, error) {
	envelope, err := BuildEnvelope(ar)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ar.ControlURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, NewNetworkError("failed to create POST request", ar.ControlURL, err)
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", ar.SOAPAction())
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	logging.LogHTTPRequest(http.MethodPost, ar.ControlURL, map[string]string{
		"SOAPACTION": ar.SOAPAction(),
	})

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("SOAP request failed", ar.ControlURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, NewNetworkError("failed to read SOAP response", ar.ControlURL, err)
	}

	logging.LogHTTPResponse(ar.ControlURL, resp.StatusCode, len(body))

	fields, order, fault, parseErr := parseEnvelope(body)

	if fault != nil {
		return nil, &RemoteFaultError{
			URL:        ar.ControlURL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Fault:      fault,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, ar.ControlURL,
			fmt.Sprintf("action %s failed with status %d", ar.Action, resp.StatusCode))
	}

	if parseErr != nil {
		logging.LogRawBytes("Unparseable SOAP response", body)
		return nil, parseErr
	}

	return &ActionResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Fields:     fields,
		Order:      order,
	}, nil
}

// BuildEnvelope serializes a SOAP request envelope for an action call.
// Argument values are XML-escaped; names are used verbatim as element names.
func BuildEnvelope(ar *ActionRequest) ([]byte, error) {
	if ar.Action == "" {
		return nil, fmt.Errorf("action name is required")
	}

	var b bytes.Buffer

	b.WriteString(xml.Header)
	b.WriteString(`<s:Envelope xmlns:s="` + soapEnvelopeNS + `" s:encodingStyle="` + soapEncodingNS + `">`)
	b.WriteString(`<s:Body>`)
	b.WriteString(`<u:` + ar.Action + ` xmlns:u="`)
	if err := xml.EscapeText(&b, []byte(ar.ServiceType)); err != nil {
		return nil, err
	}
	b.WriteString(`">`)

	for _, arg := range ar.Args {
		b.WriteString("<" + arg.Name + ">")
		if err := xml.EscapeText(&b, []byte(arg.Value)); err != nil {
			return nil, err
		}
		b.WriteString("</" + arg.Name + ">")
	}

	b.WriteString(`</u:` + ar.Action + `>`)
	b.WriteString(`</s:Body></s:Envelope>`)

	return b.Bytes(), nil
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail struct {
		UPnPError struct {
			ErrorCode        string `xml:"errorCode"`
			ErrorDescription string `xml:"errorDescription"`
		} `xml:"UPnPError"`
	} `xml:"detail"`
}

type responseElement struct {
	Items []struct {
		XMLName xml.Name
		Value   string `xml:",chardata"`
	} `xml:",any"`
}

// parseEnvelope walks a SOAP envelope and returns either the response fields or the fault.
func parseEnvelope(body []byte) (map[string]string, []string, *Fault, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	inBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil, nil, NewParseError("SOAP envelope has no Body content", nil)
		}
		if err != nil {
			return nil, nil, nil, NewParseError("malformed SOAP envelope", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !inBody {
			if se.Name.Local == "Body" {
				inBody = true
			}
			continue
		}

		if se.Name.Local == "Fault" {
			var f soapFault
			if err := dec.DecodeElement(&f, &se); err != nil {
				return nil, nil, nil, NewParseError("malformed SOAP fault", err)
			}
			return nil, nil, &Fault{
				Code:             strings.TrimSpace(f.Code),
				String:           strings.TrimSpace(f.String),
				ErrorCode:        strings.TrimSpace(f.Detail.UPnPError.ErrorCode),
				ErrorDescription: strings.TrimSpace(f.Detail.UPnPError.ErrorDescription),
			}, nil
		}

		var re responseElement
		if err := dec.DecodeElement(&re, &se); err != nil {
			return nil, nil, nil, NewParseError("malformed action response", err)
		}

		fields := make(map[string]string, len(re.Items))
		order := make([]string, 0, len(re.Items))
		for _, item := range re.Items {
			name := item.XMLName.Local
			if _, dup := fields[name]; !dup {
				order = append(order, name)
			}
			fields[name] = item.Value
		}

		logging.Debug("Parsed action response",
			zap.String("element", se.Name.Local),
			zap.Int("fields", len(fields)),
		)

		return fields, order, nil, nil
	}
}
