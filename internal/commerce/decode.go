package commerce

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/shared"
)

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type moneyV2 struct {
	Amount string `json:"amount"`
}

type moneyBag struct {
	ShopMoney moneyV2 `json:"shopMoney"`
}

type lineItemEdge struct {
	Node lineItemNode `json:"node"`
}

type orderNode struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	CreatedAt                time.Time `json:"createdAt"`
	TotalPriceSet            moneyBag  `json:"totalPriceSet"`
	DisplayFinancialStatus   string    `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string    `json:"displayFulfillmentStatus"`
	LineItems                struct {
		Edges []lineItemEdge `json:"edges"`
	} `json:"lineItems"`
}

type variantPrices struct {
	Price          *string `json:"price"`
	CompareAtPrice *string `json:"compareAtPrice"`
}

type lineItemNode struct {
	Title    string         `json:"title"`
	Quantity int            `json:"quantity"`
	Variant  *variantPrices `json:"variant"`
}

type ordersData struct {
	Orders struct {
		PageInfo pageInfo `json:"pageInfo"`
		Edges    []struct {
			Node orderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

type productNode struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Variants    struct {
		Edges []struct {
			Node struct {
				Price string `json:"price"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type productsData struct {
	Products struct {
		PageInfo pageInfo `json:"pageInfo"`
		Edges    []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

func (n orderNode) toOrder() orders.Order {
	o := orders.Order{
		ID:                n.ID,
		Name:              n.Name,
		CreatedAt:         n.CreatedAt,
		TotalAmount:       shared.ParseMoney(n.TotalPriceSet.ShopMoney.Amount).Decimal,
		FinancialStatus:   n.DisplayFinancialStatus,
		FulfillmentStatus: n.DisplayFulfillmentStatus,
		LineItems:         make([]orders.LineItem, 0, len(n.LineItems.Edges)),
	}
	for _, edge := range n.LineItems.Edges {
		o.LineItems = append(o.LineItems, edge.Node.toLineItem())
	}
	return o
}

func (n lineItemNode) toLineItem() orders.LineItem {
	li := orders.LineItem{Title: n.Title, Quantity: n.Quantity}
	if n.Variant == nil {
		return li
	}
	if n.Variant.Price != nil {
		li.UnitPrice = shared.ParseMoney(*n.Variant.Price).Decimal
	}
	if n.Variant.CompareAtPrice != nil {
		if d, err := decimal.NewFromString(*n.Variant.CompareAtPrice); err == nil {
			li.UnitCompareAtPrice = &d
		}
	}
	return li
}

func (n productNode) toProduct() catalog.Product {
	p := catalog.Product{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Tags:        n.Tags,
		Variants:    make([]catalog.Variant, 0, len(n.Variants.Edges)),
	}
	for _, edge := range n.Variants.Edges {
		p.Variants = append(p.Variants, catalog.Variant{Price: shared.ParseMoney(edge.Node.Price).Decimal})
	}
	return p
}
