package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestParseCodec(t *testing.T) {
	if ParseCodec("msgpack") != CodecMsgpack {
		t.Error("msgpack should select the binary codec")
	}
	for _, s := range []string{"", "json", "xml"} {
		if ParseCodec(s) != CodecJSON {
			t.Errorf("%q should fall back to JSON", s)
		}
	}
	if CodecJSON.Binary() || !CodecMsgpack.Binary() {
		t.Error("only msgpack frames are binary")
	}
}

func TestOutboundJSON(t *testing.T) {
	grid := GenerateGrid(&scriptedRand{def: 0.99})
	out := NewOutbound(MsgMapUpdate, MapUpdateMsg{Map: grid.Rows()})

	b, err := out.Bytes(CodecJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte(`{"t":"map-update","d":{"map":[["wall",`)) {
		t.Errorf("unexpected JSON frame %.60s", b)
	}

	var msg MapUpdateMsg
	typ, err := DecodeFrame(CodecJSON, b, &msg)
	if err != nil || typ != MsgMapUpdate {
		t.Fatalf("decode: %s %v", typ, err)
	}
	if msg.Map[1][1] != TileEmpty || msg.Map[0][0] != TileWall {
		t.Errorf("unexpected tiles %s %s", msg.Map[1][1], msg.Map[0][0])
	}
}

func TestOutboundMsgpack(t *testing.T) {
	grid := GenerateGrid(&scriptedRand{def: 0.99})
	out := NewOutbound(MsgGameState, GameStateMsg{
		Players:  []PlayerState{NewPlayer("p1", "alice", 0).ToState()},
		Powerups: []PowerupState{{X: 3, Y: 1, Type: PowerupExtraSpeed}},
		Map:      grid.Rows(),
	})

	b, err := out.Bytes(CodecMsgpack)
	if err != nil {
		t.Fatal(err)
	}

	var generic map[string]interface{}
	if err := msgpack.Unmarshal(b, &generic); err != nil {
		t.Fatal(err)
	}
	if generic["t"] != MsgGameState {
		t.Errorf("unexpected type %v", generic["t"])
	}
	d := generic["d"].(map[string]interface{})
	row := d["map"].([]interface{})[0].([]interface{})
	if row[0] != "wall" {
		t.Errorf("tiles should be encoded by name, got %v", row[0])
	}
	player := d["players"].([]interface{})[0].(map[string]interface{})
	if player["speed"] != 1.0 || player["nickname"] != "alice" {
		t.Errorf("unexpected player %v", player)
	}
	pu := d["powerups"].([]interface{})[0].(map[string]interface{})
	if pu["type"] != "speed" {
		t.Errorf("unexpected powerup type %v", pu["type"])
	}

	var msg GameStateMsg
	typ, err := DecodeFrame(CodecMsgpack, b, &msg)
	if err != nil || typ != MsgGameState {
		t.Fatalf("decode: %s %v", typ, err)
	}
	if msg.Players[0].Speed != SpeedBase || msg.Powerups[0].Type != PowerupExtraSpeed {
		t.Errorf("unexpected decoded state %+v", msg)
	}
	if len(msg.Map) != GridHeight || msg.Map[0][0] != TileWall {
		t.Error("map did not survive the round trip")
	}
}

func TestOutboundEncodesOncePerCodec(t *testing.T) {
	out := NewOutbound(MsgCountdown, CountdownMsg{Time: 10})
	a, _ := out.Bytes(CodecJSON)
	b, _ := out.Bytes(CodecJSON)
	if &a[0] != &b[0] {
		t.Error("JSON frame should be cached")
	}
	c, _ := out.Bytes(CodecMsgpack)
	if bytes.Equal(a, c) {
		t.Error("codecs should produce different frames")
	}
}

func TestOutboundWithoutPayload(t *testing.T) {
	b, err := NewOutbound(MsgMatchReset, nil).Bytes(CodecJSON)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"t":"match-reset"}` {
		t.Errorf("unexpected frame %s", b)
	}
	typ, err := DecodeFrame(CodecJSON, b, nil)
	if err != nil || typ != MsgMatchReset {
		t.Errorf("decode: %s %v", typ, err)
	}
}

func TestDecodeInboundCommands(t *testing.T) {
	var cmd CommandData
	typ, err := DecodeFrame(CodecJSON, []byte(`{"t":"join","d":{"nickname":"bob"}}`), &cmd)
	if err != nil || typ != MsgJoin || cmd.Nickname != "bob" {
		t.Errorf("json join: %s %+v %v", typ, cmd, err)
	}

	raw, err := msgpack.Marshal(Envelope{T: MsgMove, Data: CommandData{Direction: "up"}})
	if err != nil {
		t.Fatal(err)
	}
	cmd = CommandData{}
	typ, err = DecodeFrame(CodecMsgpack, raw, &cmd)
	if err != nil || typ != MsgMove || cmd.Direction != "up" {
		t.Errorf("msgpack move: %s %+v %v", typ, cmd, err)
	}

	if _, err := DecodeFrame(CodecJSON, []byte(`not json`), &cmd); err == nil {
		t.Error("malformed frame should fail")
	}
	if _, err := DecodeFrame(CodecJSON, []byte(`{"t":"chat","d":{"message":5}}`), &cmd); err == nil {
		t.Error("mistyped payload should fail")
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	b, _ := json.Marshal(Envelope{T: MsgJoinError, Data: JoinErrorMsg{Reason: ReasonFull}})
	if string(b) != `{"t":"join-error","d":{"reason":"full"}}` {
		t.Errorf("unexpected envelope %s", b)
	}
}
