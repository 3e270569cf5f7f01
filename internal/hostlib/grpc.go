package hostlib

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/cascade/internal/eval"
)

// Global registry for loaded proto descriptors
var (
	protoRegistry      = make(map[string]*desc.FileDescriptor)
	protoRegistryMutex sync.RWMutex
)

// LoadProto parses a .proto file and registers its descriptors for
// GRPCClient lookups.
func LoadProto(path string, importPaths ...string) error {
	parser := protoparse.Parser{ImportPaths: append([]string{"."}, importPaths...)}
	fds, err := parser.ParseFiles(path)
	if err != nil {
		return fmt.Errorf("hostlib: parse proto %s: %w", path, err)
	}

	protoRegistryMutex.Lock()
	defer protoRegistryMutex.Unlock()
	for _, fd := range fds {
		protoRegistry[fd.GetName()] = fd
	}
	return nil
}

// GRPCClient wraps one client connection. Its grpcInvoke host function
// performs a unary call described entirely at runtime: the method path is
// resolved against the loaded descriptors and the request Record is packed
// into a dynamic message.
type GRPCClient struct {
	conn *grpc.ClientConn
}

func GRPCConnect(target string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("hostlib: connect %s: %w", target, err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error { return c.conn.Close() }

// Functions returns the grpcInvoke host function bound to this connection.
// The call runs off the driver goroutine and settles a Pending, so an
// invoking formula is a natural await site.
func (c *GRPCClient) Functions() map[string]eval.Object {
	return map[string]eval.Object{
		"grpcInvoke": fn("grpcInvoke", c.invoke),
	}
}

// invoke(method, request) -> Pending<Record>
func (c *GRPCClient) invoke(args []eval.Object) eval.Object {
	if err := argCount("grpcInvoke", args, 2); err != nil {
		return err
	}
	method := eval.CastString(args[0])
	if eval.IsError(method) {
		return method
	}
	request, ok := args[1].(*eval.Record)
	if !ok {
		return eval.NewError(eval.CoercionFailed, "grpcInvoke request must be an object, got %s", args[1].Type())
	}
	methodPath := method.(*eval.String).Value

	return eval.Go(func() eval.Object {
		md, err := findMethodDescriptor(methodPath)
		if err != nil {
			return eval.NewError(eval.InvokeUnsupported, "grpcInvoke: %v", err)
		}

		reqMsg := dynamic.NewMessage(md.GetInputType())
		if errObj := recordToDynamicMessage(request, reqMsg); errObj != nil {
			return errObj
		}
		respMsg := dynamic.NewMessage(md.GetOutputType())

		path := methodPath
		if path[0] != '/' {
			path = "/" + path
		}
		if err := c.conn.Invoke(context.Background(), path, reqMsg, respMsg); err != nil {
			return eval.NewError(eval.InvokeUnsupported, "grpcInvoke: RPC failed: %v", err)
		}
		return dynamicMessageToRecord(respMsg)
	})
}

// findMethodDescriptor resolves "package.Service/Method" against every
// loaded file descriptor.
func findMethodDescriptor(path string) (*desc.MethodDescriptor, error) {
	var serviceName, methodName string
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			serviceName, methodName = path[:i], path[i+1:]
			break
		}
	}
	if serviceName == "" || methodName == "" {
		return nil, fmt.Errorf("invalid method path %q, expected 'package.Service/Method'", path)
	}

	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()
	for _, fd := range protoRegistry {
		if svc := fd.FindService(serviceName); svc != nil {
			if method := svc.FindMethodByName(methodName); method != nil {
				return method, nil
			}
		}
	}
	return nil, fmt.Errorf("method %q not found (did you load the proto?)", path)
}

func recordToDynamicMessage(record *eval.Record, msg *dynamic.Message) *eval.Error {
	for _, key := range record.Keys() {
		fd := msg.GetMessageDescriptor().FindFieldByName(key)
		if fd == nil {
			return eval.NewError(eval.AccessFailed, "no field %s in %s", key, msg.GetMessageDescriptor().GetName())
		}
		value, _ := record.Get(key)
		pv, err := toProtoValue(value, fd)
		if err != nil {
			return err
		}
		msg.SetFieldByName(fd.GetName(), pv)
	}
	return nil
}

func toProtoValue(value eval.Object, fd *desc.FieldDescriptor) (interface{}, *eval.Error) {
	if fd.IsRepeated() {
		list, ok := value.(*eval.List)
		if !ok {
			return nil, eval.NewError(eval.CoercionFailed, "field %s is repeated, need a list", fd.GetName())
		}
		var out []interface{}
		for _, element := range list.Elements {
			pv, err := toProtoScalar(element, fd)
			if err != nil {
				return nil, err
			}
			out = append(out, pv)
		}
		return out, nil
	}
	return toProtoScalar(value, fd)
}

func toProtoScalar(value eval.Object, fd *desc.FieldDescriptor) (interface{}, *eval.Error) {
	switch v := value.(type) {
	case *eval.Number:
		f, _ := v.Value.Float64()
		switch fd.GetType().String() {
		case "TYPE_INT32", "TYPE_SINT32", "TYPE_SFIXED32":
			return int32(f), nil
		case "TYPE_INT64", "TYPE_SINT64", "TYPE_SFIXED64":
			return int64(f), nil
		case "TYPE_UINT32", "TYPE_FIXED32":
			return uint32(f), nil
		case "TYPE_UINT64", "TYPE_FIXED64":
			return uint64(f), nil
		case "TYPE_FLOAT":
			return float32(f), nil
		default:
			return f, nil
		}
	case *eval.String:
		return v.Value, nil
	case *eval.Boolean:
		return v.Value, nil
	case *eval.Record:
		if fd.GetMessageType() == nil {
			return nil, eval.NewError(eval.CoercionFailed, "field %s is not a message", fd.GetName())
		}
		nested := dynamic.NewMessage(fd.GetMessageType())
		if err := recordToDynamicMessage(v, nested); err != nil {
			return nil, err
		}
		return nested, nil
	default:
		return nil, eval.NewError(eval.CoercionFailed, "cannot send %s over grpc", value.Type())
	}
}

func dynamicMessageToRecord(msg *dynamic.Message) eval.Object {
	record := eval.NewRecord()
	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		record.Set(fd.GetName(), fromProtoValue(msg.GetField(fd), fd))
	}
	return record
}

func fromProtoValue(value interface{}, fd *desc.FieldDescriptor) eval.Object {
	if fd.IsRepeated() {
		slice, ok := value.([]interface{})
		if !ok {
			return &eval.List{}
		}
		var out []eval.Object
		for _, v := range slice {
			out = append(out, fromProtoScalar(v))
		}
		return &eval.List{Elements: out}
	}
	return fromProtoScalar(value)
}

func fromProtoScalar(value interface{}) eval.Object {
	switch v := value.(type) {
	case nil:
		return &eval.String{Value: ""}
	case bool:
		return eval.NativeBoolToBooleanObject(v)
	case int32:
		return eval.NumberFromInt(int64(v))
	case int64:
		return eval.NumberFromInt(v)
	case uint32:
		return eval.NumberFromInt(int64(v))
	case uint64:
		return &eval.Number{Value: new(big.Rat).SetUint64(v)}
	case float32:
		r := new(big.Rat)
		r.SetFloat64(float64(v))
		return &eval.Number{Value: r}
	case float64:
		r := new(big.Rat)
		r.SetFloat64(v)
		return &eval.Number{Value: r}
	case string:
		return &eval.String{Value: v}
	case []byte:
		return &eval.String{Value: string(v)}
	case *dynamic.Message:
		return dynamicMessageToRecord(v)
	default:
		return &eval.String{Value: fmt.Sprintf("%v", v)}
	}
}
