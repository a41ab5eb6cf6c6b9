package lending

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"ethereumIndexer/internal/model"
)

const contractAddress = "0x94d8f036a0fbc216bb532d33bdf6564157af0cd7"

func param(name, typ string, value any) model.DecodedParam {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return model.DecodedParam{Name: name, Type: typ, Decoded: true, Value: raw}
}

func packed(b ...byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func logEvent(offset uint64, name string, params ...model.DecodedParam) model.RawLogEvent {
	return model.RawLogEvent{
		TxHash:        "0xtx",
		SenderAddress: contractAddress,
		LogOffset:     offset,
		Decoded:       &model.DecodedLog{Name: name, Params: params},
	}
}

func lentLog(offset uint64, lendingID string) model.RawLogEvent {
	return logEvent(offset, "Lent",
		param("nftAddress", "address", "0x00000000000000000000000000000000000000CC"),
		param("tokenId", "uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935"),
		param("lentAmount", "uint8", 1),
		param("lendingId", "uint256", lendingID),
		param("lenderAddress", "address", lender),
		param("maxRentDuration", "uint8", "10"),
		param("dailyRentPrice", "bytes4", packed(0x00, 0x01, 0x13, 0x88)),
		param("nftPrice", "bytes4", packed(0x00, 0x64, 0x00, 0x00)),
		param("isERC721", "bool", true),
		param("paymentToken", "uint8", 2),
	)
}

func rentedLog(offset uint64, lendingID, renter string, duration, at uint64) model.RawLogEvent {
	return logEvent(offset, "Rented",
		param("lendingId", "uint256", lendingID),
		param("renterAddress", "address", renter),
		param("rentDuration", "uint8", duration),
		param("rentedAt", "uint32", at),
	)
}

func returnedLog(offset uint64, lendingID string, at uint64) model.RawLogEvent {
	return logEvent(offset, "Returned",
		param("lendingId", "uint256", lendingID),
		param("returnedAt", "uint32", at),
	)
}

func TestDecodeLent(t *testing.T) {
	event, err := Decode(lentLog(3, "17"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := event.(Lent)
	if !ok {
		t.Fatalf("expected Lent, got %T", event)
	}
	want := Lent{
		EventMeta:       EventMeta{TxHash: "0xtx", LogOffset: 3, ID: 17},
		NFTAddress:      nftAddr,
		TokenID:         "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		LentAmount:      1,
		LenderAddress:   lender,
		MaxRentDuration: 10,
		DailyRentPrice:  1.5,
		NFTPrice:        100,
		IsERC721:        true,
		PaymentToken:    2,
	}
	if got != want {
		t.Fatalf("unexpected event:\n got %+v\nwant %+v", got, want)
	}
}

func TestDecodeMutations(t *testing.T) {
	cases := []struct {
		name string
		in   model.RawLogEvent
		want Event
	}{
		{
			name: "rented",
			in:   rentedLog(1, "5", strings.ToUpper(renterA[2:]), 3, 1000),
			want: Rented{EventMeta: EventMeta{TxHash: "0xtx", LogOffset: 1, ID: 5}, RenterAddress: renterA, RentDuration: 3, RentedAt: 1000},
		},
		{
			name: "returned",
			in:   returnedLog(2, "5", 2000),
			want: Returned{EventMeta: EventMeta{TxHash: "0xtx", LogOffset: 2, ID: 5}, ReturnedAt: 2000},
		},
		{
			name: "stopped",
			in:   logEvent(4, "LendingStopped", param("lendingId", "uint256", 6), param("stoppedAt", "uint32", 10)),
			want: LendingStopped{EventMeta: EventMeta{TxHash: "0xtx", LogOffset: 4, ID: 6}, StoppedAt: 10},
		},
		{
			name: "claimed",
			in:   logEvent(5, "CollateralClaimed", param("lendingId", "uint256", "6"), param("claimedAt", "uint32", "11")),
			want: CollateralClaimed{EventMeta: EventMeta{TxHash: "0xtx", LogOffset: 5, ID: 6}, ClaimedAt: 11},
		},
	}

	for _, tc := range cases {
		got, err := Decode(tc.in)
		if err != nil {
			t.Fatalf("%s: Decode: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	badPrice := lentLog(0, "1")
	badPrice.Decoded.Params[6] = param("dailyRentPrice", "bytes4", packed(1, 2))

	wrongType := returnedLog(0, "1", 5)
	wrongType.Decoded.Params[1].Type = "address"

	cases := []struct {
		name string
		in   model.RawLogEvent
	}{
		{name: "undecoded", in: model.RawLogEvent{SenderAddress: contractAddress}},
		{name: "unsupported", in: logEvent(0, "Transfer")},
		{name: "arity", in: logEvent(0, "Returned", param("lendingId", "uint256", 1))},
		{name: "type mismatch", in: wrongType},
		{name: "bad integer", in: returnedLog(0, "abc", 5)},
		{name: "negative integer", in: returnedLog(0, "-1", 5)},
		{name: "overflow", in: returnedLog(0, "18446744073709551616", 5)},
		{name: "bad address", in: rentedLog(0, "1", "0x1234", 1, 1)},
		{name: "bad price", in: badPrice},
	}

	for _, tc := range cases {
		if _, err := Decode(tc.in); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestAzraelABIEvents(t *testing.T) {
	contract, err := AzraelABI()
	if err != nil {
		t.Fatalf("AzraelABI: %v", err)
	}
	for _, kind := range Kinds {
		if _, ok := contract.Events[string(kind)]; !ok {
			t.Fatalf("abi missing event %s", kind)
		}
	}
	if got := len(contract.Events["Lent"].Inputs); got != 10 {
		t.Fatalf("expected 10 Lent inputs, got %d", got)
	}
}
