package handler

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const ServiceName = "storefront.v1.Storefront"

type ListProductsRequest struct {
	Query string `json:"query"`
}

type ListProductsResponse struct {
	Catalog  string        `json:"catalog"`
	Products []ProductView `json:"products"`
}

type GetCartRequest struct{}

type ItemRequest struct {
	ProductID int `json:"product_id"`
}

type ChangeQuantityRequest struct {
	ProductID int `json:"product_id"`
	Delta     int `json:"delta"`
}

type CouponRequest struct {
	Code string `json:"code"`
}

type AddFundsRequest struct{}

type CheckoutRequest struct {
	RequestID      string              `json:"request_id"`
	Confirm        bool                `json:"confirm"`
	DisplayedTotal decimal.NullDecimal `json:"displayed_total"`
}

type CartResponse struct {
	Cart CartView `json:"cart"`
}

type CheckoutResponse struct {
	Message string   `json:"message"`
	OrderID string   `json:"order_id"`
	Cart    CartView `json:"cart"`
}

type StorefrontServer interface {
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	AddItem(context.Context, *ItemRequest) (*CartResponse, error)
	ChangeQuantity(context.Context, *ChangeQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *ItemRequest) (*CartResponse, error)
	ApplyCoupon(context.Context, *CouponRequest) (*CartResponse, error)
	AddFunds(context.Context, *AddFundsRequest) (*CartResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
}

var StorefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListProducts", StorefrontServer.ListProducts),
		unaryMethod("GetCart", StorefrontServer.GetCart),
		unaryMethod("AddItem", StorefrontServer.AddItem),
		unaryMethod("ChangeQuantity", StorefrontServer.ChangeQuantity),
		unaryMethod("RemoveItem", StorefrontServer.RemoveItem),
		unaryMethod("ApplyCoupon", StorefrontServer.ApplyCoupon),
		unaryMethod("AddFunds", StorefrontServer.AddFunds),
		unaryMethod("Checkout", StorefrontServer.Checkout),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/storefront.proto",
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&StorefrontServiceDesc, srv)
}

func unaryMethod[Req, Resp any](name string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorefrontServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StorefrontServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type GRPCHandler struct {
	storefront *service.Storefront
	presenter  Presenter
}

func NewGRPCHandler(storefront *service.Storefront, presenter Presenter) *GRPCHandler {
	return &GRPCHandler{storefront: storefront, presenter: presenter}
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	catalog := h.storefront.Catalog()
	return &ListProductsResponse{
		Catalog:  catalog.State().String(),
		Products: h.presenter.Products(catalog.Search(req.Query)),
	}, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *GetCartRequest) (*CartResponse, error) {
	return h.cart(h.storefront.Snapshot(), nil)
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	if req.ProductID == 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id is required")
	}
	return h.cart(h.storefront.AddItem(ctx, req.ProductID))
}

func (h *GRPCHandler) ChangeQuantity(ctx context.Context, req *ChangeQuantityRequest) (*CartResponse, error) {
	return h.cart(h.storefront.ChangeQuantity(ctx, req.ProductID, req.Delta))
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	return h.cart(h.storefront.RemoveItem(ctx, req.ProductID))
}

func (h *GRPCHandler) ApplyCoupon(ctx context.Context, req *CouponRequest) (*CartResponse, error) {
	return h.cart(h.storefront.ApplyCoupon(ctx, req.Code))
}

func (h *GRPCHandler) AddFunds(ctx context.Context, req *AddFundsRequest) (*CartResponse, error) {
	return h.cart(h.storefront.AddFunds(ctx))
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	res, err := h.storefront.Checkout(ctx, service.CheckoutInput{
		RequestID:      req.RequestID,
		DisplayedTotal: req.DisplayedTotal,
		Confirmer: port.ConfirmFunc(func(context.Context, decimal.Decimal) bool {
			return req.Confirm
		}),
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &CheckoutResponse{
		Message: domain.MsgOrderPlaced,
		OrderID: res.Order.ID,
		Cart:    h.presenter.Cart(res.Snapshot),
	}, nil
}

func (h *GRPCHandler) cart(snap domain.Snapshot, err error) (*CartResponse, error) {
	if err != nil {
		return nil, grpcError(err)
	}
	return &CartResponse{Cart: h.presenter.Cart(snap)}, nil
}

func grpcError(err error) error {
	message := domain.WarningFor(err)
	if message == "" {
		message = err.Error()
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCheckoutCancelled):
		return status.Error(codes.FailedPrecondition, message)
	case errors.Is(err, domain.ErrProductNotFound):
		return status.Error(codes.NotFound, message)
	case errors.Is(err, domain.ErrInvalidCoupon):
		return status.Error(codes.InvalidArgument, message)
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, message)
	case errors.Is(err, domain.ErrTotalChanged):
		return status.Error(codes.Aborted, message)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// StorefrontClient calls the storefront service over the JSON codec.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func (c *StorefrontClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *StorefrontClient) ListProducts(ctx context.Context, query string) (*ListProductsResponse, error) {
	out := new(ListProductsResponse)
	return out, c.invoke(ctx, "ListProducts", &ListProductsRequest{Query: query}, out)
}

func (c *StorefrontClient) GetCart(ctx context.Context) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "GetCart", &GetCartRequest{}, out)
}

func (c *StorefrontClient) AddItem(ctx context.Context, productID int) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "AddItem", &ItemRequest{ProductID: productID}, out)
}

func (c *StorefrontClient) ChangeQuantity(ctx context.Context, productID, delta int) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "ChangeQuantity", &ChangeQuantityRequest{ProductID: productID, Delta: delta}, out)
}

func (c *StorefrontClient) RemoveItem(ctx context.Context, productID int) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "RemoveItem", &ItemRequest{ProductID: productID}, out)
}

func (c *StorefrontClient) ApplyCoupon(ctx context.Context, code string) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "ApplyCoupon", &CouponRequest{Code: code}, out)
}

func (c *StorefrontClient) AddFunds(ctx context.Context) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "AddFunds", &AddFundsRequest{}, out)
}

func (c *StorefrontClient) Checkout(ctx context.Context, requestID string, confirm bool) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	return out, c.invoke(ctx, "Checkout", &CheckoutRequest{RequestID: requestID, Confirm: confirm}, out)
}
