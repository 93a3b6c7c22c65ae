package decoderui

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/railscope/internal/railcom"
)

const (
	decodePath = "/api/v1/decode"
	encodePath = "/api/v1/encode"
)

type decodeRequest struct {
	Input string `json:"input"`
}

// decodedByte carries a chunk only for data code words; 0xAC decodes to chunk 0.
type decodedByte struct {
	Hex   string `json:"hex"`
	Value int    `json:"value"`
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
	Chunk *int   `json:"chunk,omitempty"`
}

type decodedMessage struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Chunks         []int  `json:"chunks"`
	PayloadBits    int    `json:"payload_bits"`
	Payload        uint64 `json:"payload"`
	Interpretation string `json:"interpretation"`
}

type reportText struct {
	ByteListing string `json:"byte_listing"`
	RawIDs      string `json:"raw_ids"`
	Payloads    string `json:"payloads"`
}

type decodeResponse struct {
	Bytes    []decodedByte    `json:"bytes"`
	Messages []decodedMessage `json:"messages"`
	Leftover []int            `json:"leftover"`
	Text     reportText       `json:"text"`
}

type encodeRequest struct {
	ID      *int                  `json:"id"`
	Fields  map[string]fieldValue `json:"fields,omitempty"`
	Payload string                `json:"payload,omitempty"`
}

// fieldValue takes a field as a JSON string ("12:30", "0x1F") or a JSON number.
type fieldValue string

func (f *fieldValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = fieldValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("field value must be a string or a number, got %s", b)
	}
	*f = fieldValue(n.String())
	return nil
}

type encodeResponse struct {
	Encoded string `json:"encoded"`
	Chunks  []int  `json:"chunks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newDecodeResponse(r railcom.Report) decodeResponse {
	resp := decodeResponse{
		Bytes:    make([]decodedByte, 0, len(r.Bytes)),
		Messages: make([]decodedMessage, 0, len(r.Messages)),
		Leftover: ints(r.Leftover),
		Text: reportText{
			ByteListing: r.ByteListing(),
			RawIDs:      r.RawIDs(),
			Payloads:    r.Payloads(),
		},
	}
	for _, b := range r.Bytes {
		db := decodedByte{Hex: b.Hex, Value: int(b.Value), Kind: b.Kind.String(), Valid: b.Valid}
		if b.Valid {
			chunk := int(b.Chunk)
			db.Chunk = &chunk
		}
		resp.Bytes = append(resp.Bytes, db)
	}
	for _, m := range r.Messages {
		resp.Messages = append(resp.Messages, decodedMessage{
			ID:             int(m.ID()),
			Name:           m.ID().String(),
			Chunks:         ints(m.Chunks),
			PayloadBits:    m.PayloadBits(),
			Payload:        m.Payload(),
			Interpretation: m.Interpret(),
		})
	}
	return resp
}

// ints widens chunk values so they encode as JSON numbers, not base64.
func ints(b []uint8) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, newDecodeResponse(railcom.Decode(req.Input)))
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	msg, err := encodeMessage(req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	b, err := msg.Bytes()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, encodeResponse{Encoded: railcom.FormatBytes(b), Chunks: ints(msg.Chunks)})
}

func encodeMessage(req encodeRequest) (railcom.Message, error) {
	if req.ID == nil {
		return railcom.Message{}, fmt.Errorf("id is required")
	}
	if *req.ID < 0 || *req.ID > 15 {
		return railcom.Message{}, fmt.Errorf("id %d out of range 0-15", *req.ID)
	}
	id := railcom.ID(*req.ID)
	if req.Payload != "" {
		if len(req.Fields) > 0 {
			return railcom.Message{}, fmt.Errorf("fields and payload are mutually exclusive")
		}
		return railcom.EncodeRaw(id, req.Payload)
	}
	raw := make(map[string]string, len(req.Fields))
	for name, v := range req.Fields {
		raw[name] = string(v)
	}
	values, err := railcom.ParseFields(id, raw)
	if err != nil {
		return railcom.Message{}, err
	}
	return railcom.EncodeFields(id, values)
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInputLen+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxInputLen {
		return fmt.Errorf("request body exceeds %d bytes", maxInputLen)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
