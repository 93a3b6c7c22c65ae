package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
)

// axPollInterval is how often the accessibility tree is re-queried while waiting.
const axPollInterval = 100 * time.Millisecond

// fillFunction sets a form control's value and fires the events a typing user would.
const fillFunction = `function() {
	this.focus();
	this.value = %s;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`

// element is a located node. Exactly one of nodeID and backendID is set:
// CSS-like locators go through chromedp's DOM tracking, role locators
// through the accessibility tree.
type element struct {
	loc       Locator
	nodeID    cdp.NodeID
	backendID cdp.BackendNodeID
}

// locate waits until the element is present and visible, or ctx expires.
func locate(ctx context.Context, loc Locator) (*element, error) {
	if loc.Kind == ByRole {
		return locateByRole(ctx, loc)
	}
	var ids []cdp.NodeID
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(loc.selector(), chromedp.ByQuery),
		chromedp.NodeIDs(loc.selector(), &ids, chromedp.ByQuery, chromedp.AtLeast(1)),
	)
	if err != nil {
		return nil, notFound(loc, err)
	}
	return &element{loc: loc, nodeID: ids[0]}, nil
}

func locateByRole(ctx context.Context, loc Locator) (*element, error) {
	ticker := time.NewTicker(axPollInterval)
	defer ticker.Stop()
	for {
		id, err := queryAXTree(ctx, loc)
		if err == nil && id != 0 {
			return &element{loc: loc, backendID: id}, nil
		}
		select {
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
			return nil, notFound(loc, err)
		case <-ticker.C:
		}
	}
}

// queryAXTree returns the first rendered node with the locator's role and
// accessible name, or 0 if there is none yet.
func queryAXTree(ctx context.Context, loc Locator) (cdp.BackendNodeID, error) {
	var found cdp.BackendNodeID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		doc, exc, err := runtime.Evaluate("document").Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("evaluating document: %s", exc.Text)
		}
		q := accessibility.QueryAXTree().WithObjectID(doc.ObjectID).WithRole(loc.Value)
		if loc.Name != "" {
			q = q.WithAccessibleName(loc.Name)
		}
		nodes, err := q.Do(ctx)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if !n.Ignored && n.BackendDOMNodeID != 0 {
				found = n.BackendDOMNodeID
				return nil
			}
		}
		return nil
	}))
	return found, err
}

func notFound(loc Locator, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrElementNotFound, loc, err)
}

// resolve returns a JavaScript handle for the element.
func (e *element) resolve(ctx context.Context) (*runtime.RemoteObject, error) {
	p := dom.ResolveNode()
	if e.nodeID != 0 {
		p = p.WithNodeID(e.nodeID)
	} else {
		p = p.WithBackendNodeID(e.backendID)
	}
	return p.Do(ctx)
}

// fill replaces the element's value with text.
func (e *element) fill(ctx context.Context, text string) error {
	literal, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(text)
	if err != nil {
		return err
	}
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := e.resolve(ctx)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", e.loc, err)
		}
		_, exc, err := runtime.CallFunctionOn(fmt.Sprintf(fillFunction, literal)).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("filling %s: %s", e.loc, exc.Text)
		}
		return nil
	}))
}

// click scrolls the element into view and clicks the middle of its first box
// with a real mouse event.
func (e *element) click(ctx context.Context) error {
	if e.nodeID != 0 {
		return chromedp.Run(ctx, chromedp.MouseClickNode(&cdp.Node{NodeID: e.nodeID}))
	}
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(e.backendID).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithBackendNodeID(e.backendID).Do(ctx)
		if err != nil {
			return err
		}
		if len(quads) == 0 || len(quads[0]) < 8 {
			return fmt.Errorf("%s has no clickable box", e.loc)
		}
		x, y := quadCenter(quads[0])
		return chromedp.MouseClickXY(x, y).Do(ctx)
	}))
}

func quadCenter(q dom.Quad) (x, y float64) {
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4
}
