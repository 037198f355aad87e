package hyperliquid

// Wire types for the Hyperliquid info API. All numeric values arrive as
// strings and are parsed with shopspring/decimal before conversion.

// infoRequest is the POST body for the /info endpoint.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// clearinghouseStateResponse is the response to type "clearinghouseState".
type clearinghouseStateResponse struct {
	MarginSummary  marginSummary   `json:"marginSummary"`
	AssetPositions []assetPosition `json:"assetPositions"`
}

type marginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

type assetPosition struct {
	Type     string       `json:"type"`
	Position wirePosition `json:"position"`
}

type wirePosition struct {
	Coin     string `json:"coin"`
	Szi      string `json:"szi"`     // signed size: positive long, negative short
	EntryPx  string `json:"entryPx"` // average entry price
	MarginPx string `json:"positionValue,omitempty"`
}

// wireOrder is one element of the "frontendOpenOrders" response array.
type wireOrder struct {
	Coin       string `json:"coin"`
	OrderType  string `json:"orderType"` // e.g. "Limit", "Stop Market", "Take Profit Market"
	ReduceOnly bool   `json:"reduceOnly"`
	LimitPx    string `json:"limitPx"`
	IsTrigger  bool   `json:"isTrigger"`
	TriggerPx  string `json:"triggerPx"`
	Sz         string `json:"sz"`
	Oid        int64  `json:"oid"`
}

// wsSubscribeRequest subscribes to a websocket channel.
type wsSubscribeRequest struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Type string `json:"type"`
}

// wsMessage is the envelope of every websocket message.
type wsMessage struct {
	Channel string    `json:"channel"`
	Data    wsMidData `json:"data"`
}

type wsMidData struct {
	Mids map[string]string `json:"mids"`
}
