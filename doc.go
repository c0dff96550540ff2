// Package docflow provides document workflows: finite-state machines that
// attach workflow state and permission-gated transitions to an arbitrary
// host document (a struct, a map, or an ORM-backed record) without the
// document knowing about workflows.
//
// The core package lives in docflow/. A workflow Definition is built once at
// program start; at runtime a Workflow instance wraps one document and
// exposes state checks, transition listing and transition execution. All
// state lives in the document itself: the instance reads and writes a
// single state field through a configured accessor (struct field, map key,
// or a get/set function pair) and can be recreated at any time.
//
// Main features:
//   - Explicit builder API: states, state groups and transitions are
//     declared with plain method calls, in a stable declaration order.
//   - Forward and reverse transition declaration, multi-source transitions,
//     and transitions declared from other packages.
//   - Permission-gated transitions with a caller-supplied resolver; the
//     request context flows through unchanged.
//   - Interactive transitions (form / validate / submit) for flows that
//     collect user input through an external UI layer.
//   - Definition inheritance via Extend, and host-type binding so documents
//     can look up their workflow with docflow.For.
//   - Atomic-looking commits: the state field is written exactly once, only
//     after the handler succeeds, so any error leaves the document unchanged.
//
// Basic usage:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/blingmoon/docflow/docflow"
//	)
//
//	type Article struct {
//	    Status int
//	}
//
//	func main() {
//	    wf := docflow.NewDefinition("article",
//	        docflow.WithStateField("Status"),
//	        docflow.WithPermissions(func(ctx context.Context) []string {
//	            if ctx.Value("is_admin") == true {
//	                return []string{"can_publish"}
//	            }
//	            return nil
//	        }),
//	    )
//	    draft, _ := wf.AddState("draft", 0, "Draft", "Only the owner can see it")
//	    pending, _ := wf.AddState("pending", 1, "Pending", "Pending review")
//	    published, _ := wf.AddState("published", 2, "Published", "")
//
//	    draft.Transition(pending, docflow.TransitionSpec{Name: "submit", Title: "Submit"})
//	    pending.Transition(published, docflow.TransitionSpec{
//	        Name:       "publish",
//	        Title:      "Publish",
//	        Permission: "can_publish",
//	    })
//
//	    doc := &Article{Status: 0}
//	    w, err := docflow.New(wf, doc)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    ctx := context.WithValue(context.Background(), "is_admin", true)
//	    w.Apply(ctx, "submit")  // doc.Status == 1
//	    w.Apply(ctx, "publish") // doc.Status == 2
//	}
//
// The examples/ directory wires the same machinery to real host stores: a
// GORM-backed article model and a Redis-hash document using the get/set
// accessor pair.
package docflow
